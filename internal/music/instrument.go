// File: internal/music/instrument.go
package music

// Transposition names the key an instrument's written C sounds in.
type Transposition string

const (
	TranspositionC  Transposition = "C"
	TranspositionBb Transposition = "Bb"
	TranspositionEb Transposition = "Eb"
)

// Interval is the number of semitones from concert pitch up to written pitch.
func (t Transposition) Interval() int {
	switch t {
	case TranspositionBb:
		return 2
	case TranspositionEb:
		return 9
	default:
		return 0
	}
}

// Clef is the staff a part is engraved on.
type Clef string

const (
	ClefTreble Clef = "treble"
	ClefBass   Clef = "bass"
)

// ValidClef reports whether s names a supported clef.
func ValidClef(s string) bool {
	return s == string(ClefTreble) || s == string(ClefBass)
}

// Instrument is a player's instrument with the part it reads.
type Instrument struct {
	ID            string        `json:"id" yaml:"id"`
	Label         string        `json:"label" yaml:"label"`
	Transposition Transposition `json:"transposition" yaml:"transposition"`
	Clef          Clef          `json:"clef" yaml:"clef"`
}

// Instruments lists every supported instrument in picker order.
var Instruments = []Instrument{
	{ID: "piano", Label: "Piano", Transposition: TranspositionC, Clef: ClefTreble},
	{ID: "guitar", Label: "Guitar", Transposition: TranspositionC, Clef: ClefTreble},
	{ID: "trumpet", Label: "Trumpet", Transposition: TranspositionBb, Clef: ClefTreble},
	{ID: "clarinet", Label: "Clarinet", Transposition: TranspositionBb, Clef: ClefTreble},
	{ID: "tenor-sax", Label: "Tenor Sax", Transposition: TranspositionBb, Clef: ClefTreble},
	{ID: "soprano-sax", Label: "Soprano Sax", Transposition: TranspositionBb, Clef: ClefTreble},
	{ID: "alto-sax", Label: "Alto Sax", Transposition: TranspositionEb, Clef: ClefTreble},
	{ID: "bari-sax", Label: "Bari Sax", Transposition: TranspositionEb, Clef: ClefTreble},
	{ID: "bass", Label: "Bass", Transposition: TranspositionC, Clef: ClefBass},
	{ID: "trombone", Label: "Trombone", Transposition: TranspositionC, Clef: ClefBass},
}

// InstrumentByID looks up an instrument by its id.
func InstrumentByID(id string) (Instrument, bool) {
	for _, inst := range Instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}

// IsValidInstrumentID reports whether id names a supported instrument.
func IsValidInstrumentID(id string) bool {
	_, ok := InstrumentByID(id)
	return ok
}
