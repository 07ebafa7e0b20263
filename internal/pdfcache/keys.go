// File: internal/pdfcache/keys.go
package pdfcache

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"jazz_picker_backend/internal/music"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	nonKeyChar      = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Slugify turns a song title into a file-safe slug: "502 Blues" becomes "502-blues".
func Slugify(title string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// BuildCacheKey builds "{slug}-{key}-{transposition}-{clef}", e.g. "blue-bossa-cm-Bb-treble".
// Every component is reduced to letters and digits so the key is always a plain file name.
func BuildCacheKey(songTitle, concertKey string, t music.Transposition, clef music.Clef) string {
	return fmt.Sprintf("%s-%s-%s-%s", Slugify(songTitle), Slugify(concertKey), keyPart(string(t)), keyPart(string(clef)))
}

// keyPart strips everything but letters and digits, keeping case ("Bb" stays "Bb").
func keyPart(s string) string {
	return nonKeyChar.ReplaceAllString(s, "")
}

// BuildCacheKeyWithOctave appends the octave offset so transposed-by-octave parts
// get their own entry.
func BuildCacheKeyWithOctave(songTitle, concertKey string, t music.Transposition, clef music.Clef, octaveOffset int) string {
	return fmt.Sprintf("%s-%d", BuildCacheKey(songTitle, concertKey, t, clef), octaveOffset)
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders a byte count with binary multiples: 1048576 becomes "1.0 MB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const k = 1024
	i := int(math.Floor(math.Log(float64(n)) / math.Log(k)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	return fmt.Sprintf("%.1f %s", float64(n)/math.Pow(k, float64(i)), byteUnits[i])
}
