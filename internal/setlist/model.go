// File: internal/setlist/model.go
package setlist

import "time"

const CollectionSetlists = "setlists"

// Setlist is an ordered list of songs owned by a user and usually shared with a band.
type Setlist struct {
	ID        string    `firestore:"-" json:"id" yaml:"id"`
	Name      string    `firestore:"name" json:"name" yaml:"name"`
	OwnerID   string    `firestore:"ownerId" json:"ownerId" yaml:"ownerId"`
	GroupID   string    `firestore:"groupId,omitempty" json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Items     []Item    `firestore:"items" json:"items" yaml:"items"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt" yaml:"updatedAt"`
}

// SongCount counts items that are songs, not set breaks.
func (s Setlist) SongCount() int {
	n := 0
	for _, item := range s.Items {
		if !item.IsSetBreak {
			n++
		}
	}
	return n
}

// Item is one entry of a setlist. A set break has no song title or key.
type Item struct {
	ID           string  `firestore:"id" json:"id" yaml:"id"`
	SongTitle    string  `firestore:"songTitle" json:"songTitle" yaml:"songTitle"`
	ConcertKey   *string `firestore:"concertKey" json:"concertKey" yaml:"concertKey"`
	Position     int     `firestore:"position" json:"position" yaml:"position"`
	IsSetBreak   bool    `firestore:"isSetBreak" json:"isSetBreak" yaml:"isSetBreak"`
	OctaveOffset int     `firestore:"octaveOffset" json:"octaveOffset" yaml:"octaveOffset"`
	Notes        *string `firestore:"notes" json:"notes" yaml:"notes"`
}

// SetlistUpdate replaces the set fields. Nil fields are left alone.
type SetlistUpdate struct {
	Name  *string
	Items []Item
}

// AddItemInput describes a song to append.
type AddItemInput struct {
	SongTitle    string  `json:"songTitle"`
	ConcertKey   *string `json:"concertKey,omitempty"`
	OctaveOffset int     `json:"octaveOffset,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// ItemUpdate changes an item's per-performance settings. Nil fields are left alone;
// an empty ConcertKey or Notes clears the stored value.
type ItemUpdate struct {
	ConcertKey   *string
	OctaveOffset *int
	Notes        *string
}

func (u ItemUpdate) apply(item Item) Item {
	if u.ConcertKey != nil {
		item.ConcertKey = nullable(*u.ConcertKey)
	}
	if u.OctaveOffset != nil {
		item.OctaveOffset = *u.OctaveOffset
	}
	if u.Notes != nil {
		item.Notes = nullable(*u.Notes)
	}
	return item
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// reindex returns a copy of items with position set to each item's index.
func reindex(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Position = i
		out[i] = item
	}
	return out
}

func without(items []Item, itemID string) []Item {
	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	return reindex(kept)
}
