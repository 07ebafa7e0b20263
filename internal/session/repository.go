// File: internal/session/repository.go
package session

import (
	"context"
	"fmt"

	"jazz_picker_backend/internal/platform/firestoreutil"

	"cloud.google.com/go/firestore"
)

// Repository defines the interface for Groove Sync session document access.
type Repository interface {
	// Get returns nil, nil when the band has no session document.
	Get(ctx context.Context, groupID string) (*Session, error)
	Start(ctx context.Context, groupID, leaderID, leaderName string) error
	// UpdateCurrentSong and Touch fail with a NotFound status when there is no session.
	UpdateCurrentSong(ctx context.Context, groupID string, song SharedSong) error
	Touch(ctx context.Context, groupID string) error
	Delete(ctx context.Context, groupID string) error
	Watch(ctx context.Context, groupID string, fn func(*Session), onError func(error)) *firestoreutil.Subscription
	SetFollowing(ctx context.Context, groupID, uid string, following bool) error
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a new Firestore-backed session repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) ref(groupID string) *firestore.DocumentRef {
	return r.client.Collection(CollectionGroups).Doc(groupID).Collection(CollectionSession).Doc(CurrentDoc)
}

func decodeSession(groupID string, snap *firestore.DocumentSnapshot) (*Session, error) {
	var s Session
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("decoding session for group %s: %w", groupID, err)
	}
	s.GroupID = groupID
	if s.CurrentSong != nil && s.CurrentSong.Source == "" {
		s.CurrentSong.Source = SourceStandard
	}
	return &s, nil
}

func (r *firestoreRepository) Get(ctx context.Context, groupID string) (*Session, error) {
	snap, err := r.ref(groupID).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeSession(groupID, snap)
}

func (r *firestoreRepository) Start(ctx context.Context, groupID, leaderID, leaderName string) error {
	_, err := r.ref(groupID).Set(ctx, map[string]interface{}{
		"leaderId":       leaderID,
		"leaderName":     leaderName,
		"startedAt":      firestore.ServerTimestamp,
		"lastActivityAt": firestore.ServerTimestamp,
		"currentSong":    nil,
	})
	return err
}

func (r *firestoreRepository) UpdateCurrentSong(ctx context.Context, groupID string, song SharedSong) error {
	_, err := r.ref(groupID).Update(ctx, []firestore.Update{
		{Path: "currentSong", Value: song},
		{Path: "lastActivityAt", Value: firestore.ServerTimestamp},
	})
	return err
}

func (r *firestoreRepository) Touch(ctx context.Context, groupID string) error {
	_, err := r.ref(groupID).Update(ctx, []firestore.Update{
		{Path: "lastActivityAt", Value: firestore.ServerTimestamp},
	})
	return err
}

func (r *firestoreRepository) Delete(ctx context.Context, groupID string) error {
	_, err := r.ref(groupID).Delete(ctx)
	return err
}

func (r *firestoreRepository) Watch(ctx context.Context, groupID string, fn func(*Session), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchDocument(ctx, r.ref(groupID), func(snap *firestore.DocumentSnapshot) error {
		if !snap.Exists() {
			fn(nil)
			return nil
		}
		s, err := decodeSession(groupID, snap)
		if err != nil {
			return err
		}
		fn(s)
		return nil
	}, onError)
}

func (r *firestoreRepository) SetFollowing(ctx context.Context, groupID, uid string, following bool) error {
	_, err := r.client.Collection(CollectionGroups).Doc(groupID).Collection(CollectionMembers).Doc(uid).Update(ctx, []firestore.Update{
		{Path: "isFollowing", Value: following},
		{Path: "lastActiveAt", Value: firestore.ServerTimestamp},
	})
	return err
}
