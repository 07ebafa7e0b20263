// File: internal/music/key.go
package music

import "strings"

// PitchClasses is the circular table used for transposition. Each name is the spelling
// used by the catalog and the LilyPond sources.
var PitchClasses = [12]string{"c", "cs", "d", "ef", "e", "f", "fs", "g", "af", "a", "bf", "b"}

var enharmonicAliases = map[string]string{
	"df": "cs",
	"gf": "fs",
	"ds": "ef",
	"as": "bf",
	"gs": "af",
}

var keyDisplay = map[string]string{
	"c": "C", "cs": "C♯", "df": "D♭", "d": "D", "ds": "D♯", "ef": "E♭",
	"e": "E", "f": "F", "fs": "F♯", "gf": "G♭", "g": "G", "gs": "G♯",
	"af": "A♭", "a": "A", "as": "A♯", "bf": "B♭", "b": "B",
}

// GenerateKeys is the set of keys accepted by the PDF generator.
var GenerateKeys = []string{"c", "cs", "df", "d", "ds", "ef", "e", "f", "fs", "gf", "g", "gs", "af", "a", "as", "bf", "b"}

// ValidGenerateKey reports whether key (already lower-cased) can be rendered.
func ValidGenerateKey(key string) bool {
	for _, k := range GenerateKeys {
		if k == key {
			return true
		}
	}
	return false
}

// PitchIndex returns the table position of a pitch name, resolving enharmonic
// spellings. It returns -1 for names outside the table.
func PitchIndex(pitch string) int {
	p := strings.ToLower(strings.TrimSpace(pitch))
	if alias, ok := enharmonicAliases[p]; ok {
		p = alias
	}
	for i, name := range PitchClasses {
		if name == p {
			return i
		}
	}
	return -1
}

// Shift rotates pitch around the table by semitones, which may be negative.
// Unknown pitch names are returned unchanged.
func Shift(pitch string, semitones int) string {
	i := PitchIndex(pitch)
	if i < 0 {
		return pitch
	}
	return PitchClasses[((i+semitones)%12+12)%12]
}

// splitMinor separates a trailing minor marker. No pitch name ends in "m".
func splitMinor(key string) (string, bool) {
	if len(key) > 1 && strings.HasSuffix(key, "m") {
		return key[:len(key)-1], true
	}
	return key, false
}

// ConcertToWritten converts a concert key to the key a transposing instrument reads.
// Unknown keys are returned unchanged.
func ConcertToWritten(concertKey string, t Transposition) string {
	pitch, minor := splitMinor(strings.ToLower(concertKey))
	if PitchIndex(pitch) < 0 {
		return concertKey
	}
	written := Shift(pitch, t.Interval())
	if minor {
		return written + "m"
	}
	return written
}

// WrittenToConcert is the inverse of ConcertToWritten.
func WrittenToConcert(writtenKey string, t Transposition) string {
	pitch, minor := splitMinor(strings.ToLower(writtenKey))
	if PitchIndex(pitch) < 0 {
		return writtenKey
	}
	concert := Shift(pitch, -t.Interval())
	if minor {
		return concert + "m"
	}
	return concert
}

// FormatKey renders a key for display: "ef" becomes "E♭" and "cm" becomes "Cm".
func FormatKey(key string) string {
	pitch, minor := splitMinor(strings.ToLower(key))
	display, ok := keyDisplay[pitch]
	if !ok {
		return strings.ToUpper(key)
	}
	if minor {
		return display + "m"
	}
	return display
}

// FormatKeyForInstrument renders a key for a player. Concert pitch instruments see just the
// key, transposing ones see e.g. "F for Trumpet (Concert E♭)".
func FormatKeyForInstrument(concertKey string, inst Instrument) string {
	concertDisplay := FormatKey(concertKey)
	if inst.Transposition == TranspositionC {
		return concertDisplay
	}
	written := FormatKey(ConcertToWritten(concertKey, inst.Transposition))
	return written + " for " + inst.Label + " (Concert " + concertDisplay + ")"
}

// PillLabel is the compact form used on song cards: "F (E♭)".
func PillLabel(concertKey string, inst Instrument) string {
	concertDisplay := FormatKey(concertKey)
	if inst.Transposition == TranspositionC {
		return concertDisplay
	}
	return FormatKey(ConcertToWritten(concertKey, inst.Transposition)) + " (" + concertDisplay + ")"
}
