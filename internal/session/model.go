// File: internal/session/model.go
package session

import "time"

const (
	CollectionGroups  = "groups"
	CollectionSession = "session"
	CollectionMembers = "members"
	// CurrentDoc is the only document in groups/{id}/session.
	CurrentDoc = "current"
)

// Timeout is how long a session survives without leader activity.
const Timeout = 15 * time.Minute

const (
	SourceStandard = "standard"
	SourceCustom   = "custom"
)

// SharedSong is the chart the leader is currently showing.
type SharedSong struct {
	Title        string `firestore:"title" json:"title" yaml:"title"`
	ConcertKey   string `firestore:"concertKey" json:"concertKey" yaml:"concertKey"`
	Source       string `firestore:"source" json:"source" yaml:"source"`
	OctaveOffset int    `firestore:"octaveOffset,omitempty" json:"octaveOffset,omitempty" yaml:"octaveOffset,omitempty"`
}

// Session is a live Groove Sync session: one leader pushing songs to the rest of the band.
type Session struct {
	GroupID        string      `firestore:"-" json:"groupId" yaml:"groupId"`
	LeaderID       string      `firestore:"leaderId" json:"leaderId" yaml:"leaderId"`
	LeaderName     string      `firestore:"leaderName" json:"leaderName" yaml:"leaderName"`
	StartedAt      time.Time   `firestore:"startedAt" json:"startedAt" yaml:"startedAt"`
	LastActivityAt time.Time   `firestore:"lastActivityAt" json:"lastActivityAt" yaml:"lastActivityAt"`
	CurrentSong    *SharedSong `firestore:"currentSong" json:"currentSong" yaml:"currentSong"`
}

// IsStale reports whether the leader has been idle longer than Timeout. A session with no
// recorded activity yet (pending server timestamp) is live.
func (s Session) IsStale(now time.Time) bool {
	if s.LastActivityAt.IsZero() {
		return false
	}
	return now.Sub(s.LastActivityAt) > Timeout
}
