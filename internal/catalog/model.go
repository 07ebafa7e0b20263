// File: internal/catalog/model.go
package catalog

import (
	"strings"
	"time"
)

// Song is a lead sheet in the catalog. CoreFiles are LilyPond sources under the
// data directory's Core/ folder; the first one is rendered.
type Song struct {
	ID           uint        `gorm:"primaryKey"`
	Title        string      `gorm:"type:varchar(255);uniqueIndex;not null"`
	DefaultKey   string      `gorm:"type:varchar(8);not null;default:c"`
	Composer     string      `gorm:"type:varchar(255)"`
	CoreFiles    []string    `gorm:"serializer:json;type:text"`
	LowNoteMidi  *int        `gorm:"column:low_note_midi"`
	HighNoteMidi *int        `gorm:"column:high_note_midi"`
	Source       string      `gorm:"type:varchar(64)"`
	Variations   []Variation `gorm:"foreignKey:SongID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Song) TableName() string { return "songs" }

// Variation is one prepared arrangement of a song.
type Variation struct {
	ID            uint   `gorm:"primaryKey"`
	SongID        uint   `gorm:"index;not null"`
	Filename      string `gorm:"type:varchar(255);not null"`
	DisplayName   string `gorm:"type:varchar(255)"`
	Key           string `gorm:"type:varchar(8)"`
	Instrument    string `gorm:"type:varchar(16);index"`
	VariationType string `gorm:"type:varchar(64);index"`
}

func (Variation) TableName() string { return "variations" }

// Instrument filter values accepted by the song list.
var ValidInstrumentFilters = []string{"All", "C", "Bb", "Eb", "Bass"}

// Singer range filter values accepted by the song list.
var ValidSingerRanges = []string{"All", "Standard", "Alto/Mezzo/Soprano", "Baritone/Tenor/Bass"}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SearchQuery holds the song list filters.
type SearchQuery struct {
	Query       string
	Instrument  string
	SingerRange string
	Limit       int
	Offset      int
}

// HasFilters reports whether the query narrows by instrument or singer range.
func (q SearchQuery) HasFilters() bool {
	return (q.Instrument != "" && q.Instrument != "All") || (q.SingerRange != "" && q.SingerRange != "All")
}

// SongSummary is the slim list representation of a song.
type SongSummary struct {
	Title        string `json:"title" yaml:"title"`
	DefaultKey   string `json:"default_key" yaml:"default_key"`
	Composer     string `json:"composer,omitempty" yaml:"composer,omitempty"`
	LowNoteMidi  *int   `json:"low_note_midi,omitempty" yaml:"low_note_midi,omitempty"`
	HighNoteMidi *int   `json:"high_note_midi,omitempty" yaml:"high_note_midi,omitempty"`
}

// ToSongSummary converts a Song model to its list representation.
func ToSongSummary(s *Song) SongSummary {
	return SongSummary{
		Title:        s.Title,
		DefaultKey:   s.DefaultKey,
		Composer:     s.Composer,
		LowNoteMidi:  s.LowNoteMidi,
		HighNoteMidi: s.HighNoteMidi,
	}
}

// SongListResponse is returned by GET /api/v2/songs.
type SongListResponse struct {
	Songs      []SongSummary `json:"songs" yaml:"songs"`
	Total      int64         `json:"total" yaml:"total"`
	Limit      int           `json:"limit" yaml:"limit"`
	Offset     int           `json:"offset" yaml:"offset"`
	Instrument string        `json:"instrument" yaml:"instrument"`
}

// CatalogResponse carries the whole catalog for clients that cache it locally.
type CatalogResponse struct {
	Songs []SongSummary `json:"songs" yaml:"songs"`
	Total int64         `json:"total" yaml:"total"`
}

// VariationResponse is a variation as returned by the detail endpoint.
type VariationResponse struct {
	ID            string `json:"id" yaml:"id"`
	DisplayName   string `json:"display_name" yaml:"display_name"`
	Key           string `json:"key" yaml:"key"`
	Instrument    string `json:"instrument" yaml:"instrument"`
	VariationType string `json:"variation_type" yaml:"variation_type"`
	Filename      string `json:"filename" yaml:"filename"`
}

// ToVariationResponse converts a Variation model. The id is the filename without ".ly".
func ToVariationResponse(v *Variation) VariationResponse {
	return VariationResponse{
		ID:            strings.TrimSuffix(v.Filename, ".ly"),
		DisplayName:   v.DisplayName,
		Key:           v.Key,
		Instrument:    v.Instrument,
		VariationType: v.VariationType,
		Filename:      v.Filename,
	}
}

// SongDetailResponse is returned by GET /api/v2/songs/:title.
type SongDetailResponse struct {
	Title      string              `json:"title" yaml:"title"`
	Variations []VariationResponse `json:"variations" yaml:"variations"`
}

// CachedKey is a rendered key/clef pair already in object storage.
type CachedKey struct {
	Key  string `json:"key" yaml:"key"`
	Clef string `json:"clef" yaml:"clef"`
}

// CachedKeysResponse is returned by GET /api/v2/songs/:title/cached.
type CachedKeysResponse struct {
	DefaultKey  string      `json:"default_key" yaml:"default_key"`
	DefaultClef string      `json:"default_clef" yaml:"default_clef"`
	CachedKeys  []CachedKey `json:"cached_keys" yaml:"cached_keys"`
}

// Stats are catalog totals for the health and index endpoints.
type Stats struct {
	TotalSongs      int64 `json:"total_songs"`
	TotalVariations int64 `json:"total_variations"`
}
