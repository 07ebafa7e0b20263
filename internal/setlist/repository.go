// File: internal/setlist/repository.go
package setlist

import (
	"context"
	"fmt"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"cloud.google.com/go/firestore"
)

// Repository defines the interface for setlist document access.
type Repository interface {
	// Get returns nil, nil when the setlist does not exist.
	Get(ctx context.Context, id string) (*Setlist, error)
	// List returns setlists newest first. Nil groupIDs lists every setlist.
	List(ctx context.Context, groupIDs []string) ([]Setlist, error)
	Create(ctx context.Context, name, ownerID, groupID string) (string, error)
	// Update writes the set fields and touches updatedAt.
	Update(ctx context.Context, id string, update SetlistUpdate) error
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context, groupIDs []string, fn func([]Setlist), onError func(error)) *firestoreutil.Subscription
	WatchOne(ctx context.Context, id string, fn func(*Setlist), onError func(error)) *firestoreutil.Subscription
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a new Firestore-backed setlist repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionSetlists)
}

func (r *firestoreRepository) query(groupIDs []string) firestore.Query {
	q := r.collection().Query
	if groupIDs != nil {
		q = q.Where("groupId", "in", groupIDs)
	}
	return q.OrderBy("updatedAt", firestore.Desc)
}

func decode(snap *firestore.DocumentSnapshot) (*Setlist, error) {
	var s Setlist
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("decoding setlist %s: %w", snap.Ref.ID, err)
	}
	s.ID = snap.Ref.ID
	if s.Items == nil {
		s.Items = []Item{}
	}
	return &s, nil
}

func decodeAll(snaps []*firestore.DocumentSnapshot) ([]Setlist, error) {
	setlists := make([]Setlist, 0, len(snaps))
	for _, snap := range snaps {
		s, err := decode(snap)
		if err != nil {
			return nil, err
		}
		setlists = append(setlists, *s)
	}
	return setlists, nil
}

func (r *firestoreRepository) Get(ctx context.Context, id string) (*Setlist, error) {
	snap, err := r.collection().Doc(id).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode(snap)
}

func (r *firestoreRepository) List(ctx context.Context, groupIDs []string) ([]Setlist, error) {
	snaps, err := r.query(groupIDs).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeAll(snaps)
}

func (r *firestoreRepository) Create(ctx context.Context, name, ownerID, groupID string) (string, error) {
	ref := r.collection().NewDoc()
	data := map[string]interface{}{
		"name":      name,
		"ownerId":   ownerID,
		"items":     []Item{},
		"createdAt": firestore.ServerTimestamp,
		"updatedAt": firestore.ServerTimestamp,
	}
	if groupID != "" {
		data["groupId"] = groupID
	}
	if _, err := ref.Set(ctx, data); err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (r *firestoreRepository) Update(ctx context.Context, id string, update SetlistUpdate) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
	if update.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *update.Name})
	}
	if update.Items != nil {
		updates = append(updates, firestore.Update{Path: "items", Value: update.Items})
	}
	if _, err := r.collection().Doc(id).Update(ctx, updates); err != nil {
		if firestoreutil.IsNotFound(err) {
			return common.ErrNotFound.WithMessage("Setlist not found")
		}
		return err
	}
	return nil
}

func (r *firestoreRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection().Doc(id).Delete(ctx)
	return err
}

func (r *firestoreRepository) Watch(ctx context.Context, groupIDs []string, fn func([]Setlist), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchQuery(ctx, r.query(groupIDs), func(snap *firestore.QuerySnapshot) error {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return err
		}
		setlists, err := decodeAll(docs)
		if err != nil {
			return err
		}
		fn(setlists)
		return nil
	}, onError)
}

func (r *firestoreRepository) WatchOne(ctx context.Context, id string, fn func(*Setlist), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchDocument(ctx, r.collection().Doc(id), func(snap *firestore.DocumentSnapshot) error {
		if !snap.Exists() {
			fn(nil)
			return nil
		}
		s, err := decode(snap)
		if err != nil {
			return err
		}
		fn(s)
		return nil
	}, onError)
}
