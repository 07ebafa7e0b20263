// File: internal/generate/model.go
package generate

// Request asks for a song rendered in a key and clef. Instrument is printed in the header
// and becomes part of the object key.
type Request struct {
	Song       string `json:"song" binding:"required"`
	Key        string `json:"key" binding:"required,generatekey"`
	Clef       string `json:"clef"`
	Instrument string `json:"instrument"`
}

// Response points at the rendered PDF.
type Response struct {
	URL              string `json:"url" yaml:"url"`
	Cached           bool   `json:"cached" yaml:"cached"`
	GenerationTimeMS int64  `json:"generation_time_ms" yaml:"generation_time_ms"`
}
