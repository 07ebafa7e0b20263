// File: internal/migration/store.go
package migration

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// UserRecord is the part of a users document the migration reads.
type UserRecord struct {
	ID     string
	Groups []string
	// Err is set when the document could not be decoded.
	Err error
}

// SetlistRecord is the part of a setlists document the migration reads.
type SetlistRecord struct {
	ID      string
	GroupID string
	Err     error
}

// Batch queues writes that are applied together on Commit.
type Batch interface {
	AddAdmin(groupID, uid string)
	LinkUser(uid, groupID string)
	AssignSetlist(setlistID, groupID string)
	Commit(ctx context.Context) error
}

// Store is the document access the migration needs.
type Store interface {
	FindGroupByCode(ctx context.Context, code string) (id string, found bool, err error)
	CreateGroup(ctx context.Context, name, code string) (string, error)
	Users(ctx context.Context) ([]UserRecord, error)
	Setlists(ctx context.Context) ([]SetlistRecord, error)
	NewBatch() Batch
}

type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a migration Store over client.
func NewFirestoreStore(client *firestore.Client) Store {
	return &firestoreStore{client: client}
}

func (s *firestoreStore) FindGroupByCode(ctx context.Context, code string) (string, bool, error) {
	iter := s.client.Collection("groups").Where("code", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if err == iterator.Done {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return snap.Ref.ID, true, nil
}

func (s *firestoreStore) CreateGroup(ctx context.Context, name, code string) (string, error) {
	ref := s.client.Collection("groups").NewDoc()
	_, err := ref.Set(ctx, map[string]interface{}{
		"name":      name,
		"code":      code,
		"createdAt": firestore.ServerTimestamp,
		"updatedAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *firestoreStore) Users(ctx context.Context) ([]UserRecord, error) {
	snaps, err := s.client.Collection("users").Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	records := make([]UserRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc struct {
			Groups []string `firestore:"groups"`
		}
		rec := UserRecord{ID: snap.Ref.ID}
		if err := snap.DataTo(&doc); err != nil {
			rec.Err = err
		}
		rec.Groups = doc.Groups
		records = append(records, rec)
	}
	return records, nil
}

func (s *firestoreStore) Setlists(ctx context.Context) ([]SetlistRecord, error) {
	snaps, err := s.client.Collection("setlists").Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing setlists: %w", err)
	}
	records := make([]SetlistRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc struct {
			GroupID string `firestore:"groupId"`
		}
		rec := SetlistRecord{ID: snap.Ref.ID}
		if err := snap.DataTo(&doc); err != nil {
			rec.Err = err
		}
		rec.GroupID = doc.GroupID
		records = append(records, rec)
	}
	return records, nil
}

func (s *firestoreStore) NewBatch() Batch {
	return &firestoreBatch{client: s.client, batch: s.client.Batch()}
}

type firestoreBatch struct {
	client *firestore.Client
	batch  *firestore.WriteBatch
}

func (b *firestoreBatch) AddAdmin(groupID, uid string) {
	ref := b.client.Collection("groups").Doc(groupID).Collection("members").Doc(uid)
	b.batch.Set(ref, map[string]interface{}{
		"role":     "admin",
		"joinedAt": firestore.ServerTimestamp,
	})
}

func (b *firestoreBatch) LinkUser(uid, groupID string) {
	b.batch.Update(b.client.Collection("users").Doc(uid), []firestore.Update{
		{Path: "groups", Value: firestore.ArrayUnion(groupID)},
		{Path: "lastUsedGroupId", Value: groupID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (b *firestoreBatch) AssignSetlist(setlistID, groupID string) {
	b.batch.Update(b.client.Collection("setlists").Doc(setlistID), []firestore.Update{
		{Path: "groupId", Value: groupID},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	_, err := b.batch.Commit(ctx)
	return err
}
