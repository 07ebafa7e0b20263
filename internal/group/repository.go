// File: internal/group/repository.go
package group

import (
	"context"
	"fmt"
	"sort"

	"jazz_picker_backend/internal/platform/firestoreutil"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Repository defines the interface for band document access.
type Repository interface {
	// Get returns nil, nil when the group does not exist.
	Get(ctx context.Context, id string) (*Group, error)
	// GetByCode expects an already normalized code.
	GetByCode(ctx context.Context, code string) (*Group, error)
	CreateGroup(ctx context.Context, name, code string) (*Group, error)
	DeleteGroup(ctx context.Context, id string) error
	WatchGroup(ctx context.Context, id string, fn func(*Group), onError func(error)) *firestoreutil.Subscription

	// Members are ordered by joinedAt, oldest first.
	Members(ctx context.Context, groupID string) ([]Member, error)
	GetMember(ctx context.Context, groupID, uid string) (*Member, error)
	SetMember(ctx context.Context, groupID, uid string, role Role) error
	UpdateMemberRole(ctx context.Context, groupID, uid string, role Role) error
	DeleteMember(ctx context.Context, groupID, uid string) error
	WatchMembers(ctx context.Context, groupID string, fn func([]Member), onError func(error)) *firestoreutil.Subscription

	// AddUserGroup adds groupID to the user's groups and makes it the last used band.
	AddUserGroup(ctx context.Context, uid, groupID string) error
	RemoveUserGroup(ctx context.Context, uid, groupID string) error
	SetLastUsed(ctx context.Context, uid, groupID string) error
	// UserGroupIDs reports found == false when the user has no profile.
	UserGroupIDs(ctx context.Context, uid string) (ids []string, found bool, err error)

	CountSetlists(ctx context.Context, groupID string) (int, error)
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a new Firestore-backed band repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) groups() *firestore.CollectionRef {
	return r.client.Collection(CollectionGroups)
}

func (r *firestoreRepository) members(groupID string) *firestore.CollectionRef {
	return r.groups().Doc(groupID).Collection(CollectionMembers)
}

func (r *firestoreRepository) user(uid string) *firestore.DocumentRef {
	return r.client.Collection(CollectionUsers).Doc(uid)
}

func decodeGroup(snap *firestore.DocumentSnapshot) (*Group, error) {
	var g Group
	if err := snap.DataTo(&g); err != nil {
		return nil, fmt.Errorf("decoding group %s: %w", snap.Ref.ID, err)
	}
	g.ID = snap.Ref.ID
	return &g, nil
}

func decodeMembers(snaps []*firestore.DocumentSnapshot) ([]Member, error) {
	members := make([]Member, 0, len(snaps))
	for _, snap := range snaps {
		var m Member
		if err := snap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decoding member %s: %w", snap.Ref.ID, err)
		}
		m.UserID = snap.Ref.ID
		members = append(members, m)
	}
	// Ordered here rather than in the query so members missing joinedAt are kept.
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *firestoreRepository) Get(ctx context.Context, id string) (*Group, error) {
	snap, err := r.groups().Doc(id).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeGroup(snap)
}

func (r *firestoreRepository) GetByCode(ctx context.Context, code string) (*Group, error) {
	iter := r.groups().Where("code", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeGroup(snap)
}

func (r *firestoreRepository) CreateGroup(ctx context.Context, name, code string) (*Group, error) {
	ref, _, err := r.groups().Add(ctx, map[string]interface{}{
		"name":      name,
		"code":      code,
		"createdAt": firestore.ServerTimestamp,
		"updatedAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return nil, err
	}
	return &Group{ID: ref.ID, Name: name, Code: code}, nil
}

func (r *firestoreRepository) DeleteGroup(ctx context.Context, id string) error {
	_, err := r.groups().Doc(id).Delete(ctx)
	return err
}

func (r *firestoreRepository) WatchGroup(ctx context.Context, id string, fn func(*Group), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchDocument(ctx, r.groups().Doc(id), func(snap *firestore.DocumentSnapshot) error {
		if !snap.Exists() {
			fn(nil)
			return nil
		}
		g, err := decodeGroup(snap)
		if err != nil {
			return err
		}
		fn(g)
		return nil
	}, onError)
}

func (r *firestoreRepository) Members(ctx context.Context, groupID string) ([]Member, error) {
	snaps, err := r.members(groupID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeMembers(snaps)
}

func (r *firestoreRepository) GetMember(ctx context.Context, groupID, uid string) (*Member, error) {
	snap, err := r.members(groupID).Doc(uid).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var m Member
	if err := snap.DataTo(&m); err != nil {
		return nil, fmt.Errorf("decoding member %s: %w", uid, err)
	}
	m.UserID = uid
	return &m, nil
}

func (r *firestoreRepository) SetMember(ctx context.Context, groupID, uid string, role Role) error {
	_, err := r.members(groupID).Doc(uid).Set(ctx, map[string]interface{}{
		"role":     string(role),
		"joinedAt": firestore.ServerTimestamp,
	})
	return err
}

func (r *firestoreRepository) UpdateMemberRole(ctx context.Context, groupID, uid string, role Role) error {
	_, err := r.members(groupID).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "role", Value: string(role)},
	})
	return err
}

func (r *firestoreRepository) DeleteMember(ctx context.Context, groupID, uid string) error {
	_, err := r.members(groupID).Doc(uid).Delete(ctx)
	return err
}

func (r *firestoreRepository) WatchMembers(ctx context.Context, groupID string, fn func([]Member), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchQuery(ctx, r.members(groupID).Query, func(snap *firestore.QuerySnapshot) error {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		members, err := decodeMembers(docs)
		if err != nil {
			return err
		}
		fn(members)
		return nil
	}, onError)
}

func (r *firestoreRepository) AddUserGroup(ctx context.Context, uid, groupID string) error {
	_, err := r.user(uid).Set(ctx, map[string]interface{}{
		"groups":          firestore.ArrayUnion(groupID),
		"lastUsedGroupId": groupID,
		"updatedAt":       firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

func (r *firestoreRepository) RemoveUserGroup(ctx context.Context, uid, groupID string) error {
	_, err := r.user(uid).Update(ctx, []firestore.Update{
		{Path: "groups", Value: firestore.ArrayRemove(groupID)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if firestoreutil.IsNotFound(err) {
		return nil
	}
	return err
}

func (r *firestoreRepository) SetLastUsed(ctx context.Context, uid, groupID string) error {
	_, err := r.user(uid).Update(ctx, []firestore.Update{
		{Path: "lastUsedGroupId", Value: groupID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return err
}

func (r *firestoreRepository) UserGroupIDs(ctx context.Context, uid string) ([]string, bool, error) {
	snap, err := r.user(uid).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var doc struct {
		Groups []string `firestore:"groups"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return nil, true, fmt.Errorf("decoding user %s: %w", uid, err)
	}
	return doc.Groups, true, nil
}

func (r *firestoreRepository) CountSetlists(ctx context.Context, groupID string) (int, error) {
	snaps, err := r.client.Collection(CollectionSetlists).
		Where("groupId", "==", groupID).
		Select().
		Documents(ctx).
		GetAll()
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *firestoreRepository) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, _, err := r.client.Collection(CollectionAuditLog).Add(ctx, entry)
	return err
}
