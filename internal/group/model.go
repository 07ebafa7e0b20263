// File: internal/group/model.go
package group

import "time"

const (
	CollectionGroups   = "groups"
	CollectionMembers  = "members"
	CollectionAuditLog = "auditLog"
	CollectionUsers    = "users"
	CollectionSetlists = "setlists"
)

// MaxCodeAttempts bounds how many slugs Create tries before giving up.
const MaxCodeAttempts = 10

// Role is a member's permission level within a band.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Group is a band: a named set of members sharing setlists, joined by code.
type Group struct {
	ID        string    `firestore:"-" json:"id" yaml:"id"`
	Name      string    `firestore:"name" json:"name" yaml:"name"`
	Code      string    `firestore:"code" json:"code" yaml:"code"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt" yaml:"updatedAt"`
}

// Member is a document in groups/{id}/members, keyed by user id.
type Member struct {
	UserID   string    `firestore:"-" json:"userId" yaml:"userId"`
	Role     Role      `firestore:"role" json:"role" yaml:"role"`
	JoinedAt time.Time `firestore:"joinedAt" json:"joinedAt" yaml:"joinedAt"`
}

func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

// AuditAction names a membership change recorded in the audit log.
type AuditAction string

const (
	AuditMemberJoined  AuditAction = "member_joined"
	AuditMemberLeft    AuditAction = "member_left"
	AuditMemberRemoved AuditAction = "member_removed"
	AuditAdminGranted  AuditAction = "admin_granted"
	AuditAdminRevoked  AuditAction = "admin_revoked"
)

// AuditEntry is one row of the auditLog collection.
type AuditEntry struct {
	GroupID   string                 `firestore:"groupId" json:"groupId"`
	Action    AuditAction            `firestore:"action" json:"action"`
	ActorID   string                 `firestore:"actorId" json:"actorId"`
	TargetID  string                 `firestore:"targetId" json:"targetId"`
	Timestamp time.Time              `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	Metadata  map[string]interface{} `firestore:"metadata,omitempty" json:"metadata,omitempty"`
}

func findMember(members []Member, uid string) (Member, bool) {
	for _, m := range members {
		if m.UserID == uid {
			return m, true
		}
	}
	return Member{}, false
}

func countAdmins(members []Member) int {
	n := 0
	for _, m := range members {
		if m.IsAdmin() {
			n++
		}
	}
	return n
}
