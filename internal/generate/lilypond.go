// File: internal/generate/lilypond.go
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GeneratedDir is the folder inside the LilyPond data directory that holds wrappers and output.
// Wrappers include "../Core/..." so they must live one level below the data directory.
const GeneratedDir = "Generated"

// ErrRenderTimeout is returned when LilyPond runs past its time limit.
var ErrRenderTimeout = errors.New("lilypond timed out")

// Renderer compiles a wrapper file into a PDF.
type Renderer interface {
	// Render compiles dataDir/Generated/{base}.ly into dataDir/Generated/{base}.pdf and
	// returns the compiler's stderr. A non-nil error means the compiler could not be run.
	Render(ctx context.Context, dataDir, base string) (stderr string, err error)
}

// LilyPondRenderer runs the lilypond binary.
type LilyPondRenderer struct {
	Bin     string
	Timeout time.Duration
}

func NewLilyPondRenderer(bin string, timeout time.Duration) *LilyPondRenderer {
	return &LilyPondRenderer{Bin: bin, Timeout: timeout}
}

func (r *LilyPondRenderer) Render(ctx context.Context, dataDir, base string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out := GeneratedDir + "/" + base
	cmd := exec.CommandContext(ctx, r.Bin, "-o", out, out+".ly")
	cmd.Dir = dataDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stderr.String(), ErrRenderTimeout
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return stderr.String(), fmt.Errorf("failed to run %s: %w", r.Bin, err)
	}
	// LilyPond exits non-zero on warnings too; the caller checks for the PDF.
	return stderr.String(), nil
}

// WrapperContent is the LilyPond source that renders coreFile in key and clef.
func WrapperContent(coreFile, key, clef, instrument string) string {
	return fmt.Sprintf(`%%%% -*- Mode: LilyPond -*-

\version "2.24.0"

\include "english.ly"

instrument = "%s"
whatKey = %s
whatClef = "%s"

\include "../Core/%s"
`, escapeLilyString(instrument), key, clef, coreFile)
}

func escapeLilyString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// ErrorSummary extracts up to five "error:" lines from LilyPond's stderr, falling back to
// the first 500 characters.
func ErrorSummary(stderr string) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(strings.ToLower(line), "error:") {
			lines = append(lines, strings.TrimSpace(line))
			if len(lines) == 5 {
				break
			}
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	if runes := []rune(stderr); len(runes) > 500 {
		return string(runes[:500])
	}
	return stderr
}
