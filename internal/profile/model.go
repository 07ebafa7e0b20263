// File: internal/profile/model.go
package profile

import "time"

// CollectionUsers holds one profile document per signed-in user, keyed by uid.
const CollectionUsers = "users"

// UserProfile is the per-user settings document.
type UserProfile struct {
	ID                     string                       `firestore:"-" json:"id" yaml:"id"`
	Instrument             string                       `firestore:"instrument" json:"instrument" yaml:"instrument"`
	DisplayName            string                       `firestore:"displayName" json:"displayName" yaml:"displayName"`
	Email                  string                       `firestore:"email,omitempty" json:"email,omitempty" yaml:"email,omitempty"`
	PreferredKeys          map[string]string            `firestore:"preferredKeys,omitempty" json:"preferredKeys,omitempty" yaml:"preferredKeys,omitempty"`
	PreferredOctaveOffsets map[string]int               `firestore:"preferredOctaveOffsets,omitempty" json:"preferredOctaveOffsets,omitempty" yaml:"preferredOctaveOffsets,omitempty"`
	MetronomeSettings      map[string]MetronomeSettings `firestore:"metronomeSettings,omitempty" json:"metronomeSettings,omitempty" yaml:"metronomeSettings,omitempty"`
	Groups                 []string                     `firestore:"groups,omitempty" json:"groups,omitempty" yaml:"groups,omitempty"`
	LastUsedGroupID        string                       `firestore:"lastUsedGroupId,omitempty" json:"lastUsedGroupId,omitempty" yaml:"lastUsedGroupId,omitempty"`
	CreatedAt              time.Time                    `firestore:"createdAt" json:"createdAt" yaml:"createdAt"`
	UpdatedAt              time.Time                    `firestore:"updatedAt" json:"updatedAt" yaml:"updatedAt"`
}

// PreferredKey returns the stored concert key for title, or defaultKey.
func (p *UserProfile) PreferredKey(title, defaultKey string) string {
	if p == nil {
		return defaultKey
	}
	if key, ok := p.PreferredKeys[title]; ok && key != "" {
		return key
	}
	return defaultKey
}

// OctaveOffset returns the stored octave shift for title.
func (p *UserProfile) OctaveOffset(title string) int {
	if p == nil {
		return 0
	}
	return p.PreferredOctaveOffsets[title]
}

// MetronomeSettings are a user's overrides of a song's tempo and meter.
type MetronomeSettings struct {
	BPM           *int    `firestore:"bpm,omitempty" json:"bpm,omitempty" yaml:"bpm,omitempty"`
	TimeSignature *string `firestore:"timeSignature,omitempty" json:"timeSignature,omitempty" yaml:"timeSignature,omitempty"`
}

// IsEmpty reports whether no override is set.
func (m MetronomeSettings) IsEmpty() bool {
	return m.BPM == nil && m.TimeSignature == nil
}

// TimeSignatures lists the meters the metronome understands.
var TimeSignatures = []string{"2/2", "2/4", "3/4", "4/4", "5/4", "6/4", "3/8", "5/8", "6/8", "7/8", "9/8", "12/8"}

// ValidTimeSignature reports whether ts is one of TimeSignatures.
func ValidTimeSignature(ts string) bool {
	for _, candidate := range TimeSignatures {
		if candidate == ts {
			return true
		}
	}
	return false
}

const (
	MinBPM = 30
	MaxBPM = 400
)

// ProfileUpdate carries the editable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	Instrument  *string `json:"instrument,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
}

// FieldChange is one field write in a profile update. Path elements are joined as a
// Firestore field path, so song titles containing dots stay a single segment.
type FieldChange struct {
	Path   []string
	Value  interface{}
	Delete bool
}
