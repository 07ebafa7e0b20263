// File: internal/jazzslug/slug.go

// Package jazzslug generates three-word jazz codes such as "smoky-monk-vamp" used to
// invite players into a band.
package jazzslug

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

var wordPattern = regexp.MustCompile(`^[a-z]+$`)

// Each position draws from its own pool so codes read like adjective-noun-verb.
var pools = [3][]string{
	concat(feels, styles, times),
	concat(musicians, instruments, things),
	concat(terms, actions, places),
}

// TotalWords is the number of words across all lists, counting duplicates.
var TotalWords = len(styles) + len(musicians) + len(terms) + len(instruments) +
	len(feels) + len(places) + len(times) + len(things) + len(actions)

// PossibleCombinations is how many distinct position draws exist.
var PossibleCombinations = len(pools[0]) * len(pools[1]) * len(pools[2])

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Generator draws codes from a random source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a Generator backed by src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// Generate returns a fresh code.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	words := make([]string, len(pools))
	for i, pool := range pools {
		words[i] = pool[g.rnd.Intn(len(pool))]
	}
	return strings.Join(words, "-")
}

var defaultGenerator = NewGenerator(rand.NewSource(time.Now().UnixNano()))

// Generate returns a code from the package generator.
func Generate() string {
	return defaultGenerator.Generate()
}

// IsValid reports whether s looks like a code: three lowercase alphabetic words
// joined by hyphens. Case is ignored.
func IsValid(s string) bool {
	parts := strings.Split(strings.ToLower(s), "-")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if !wordPattern.MatchString(p) {
			return false
		}
	}
	return true
}

// Normalize prepares user input for lookup.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
