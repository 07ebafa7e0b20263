// File: internal/profile/repository.go
package profile

import (
	"context"
	"fmt"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"cloud.google.com/go/firestore"
)

// Repository defines the interface for profile document access.
type Repository interface {
	// Get returns nil, nil when the user has no profile.
	Get(ctx context.Context, uid string) (*UserProfile, error)
	// GetMany returns the profiles that exist among uids.
	GetMany(ctx context.Context, uids []string) ([]UserProfile, error)
	Create(ctx context.Context, profile *UserProfile) error
	// Update applies changes and touches updatedAt.
	Update(ctx context.Context, uid string, changes []FieldChange) error
	Watch(ctx context.Context, uid string, fn func(*UserProfile), onError func(error)) *firestoreutil.Subscription
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a new Firestore-backed profile repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(CollectionUsers).Doc(uid)
}

func decode(snap *firestore.DocumentSnapshot) (*UserProfile, error) {
	var p UserProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", snap.Ref.ID, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *firestoreRepository) Get(ctx context.Context, uid string) (*UserProfile, error) {
	snap, err := r.doc(uid).Get(ctx)
	if err != nil {
		if firestoreutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decode(snap)
}

func (r *firestoreRepository) GetMany(ctx context.Context, uids []string) ([]UserProfile, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, r.doc(uid))
	}
	snaps, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	profiles := make([]UserProfile, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		p, err := decode(snap)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func (r *firestoreRepository) Create(ctx context.Context, profile *UserProfile) error {
	_, err := r.doc(profile.ID).Set(ctx, map[string]interface{}{
		"instrument":  profile.Instrument,
		"displayName": profile.DisplayName,
		"createdAt":   firestore.ServerTimestamp,
		"updatedAt":   firestore.ServerTimestamp,
	})
	return err
}

func (r *firestoreRepository) Update(ctx context.Context, uid string, changes []FieldChange) error {
	updates := make([]firestore.Update, 0, len(changes)+1)
	for _, c := range changes {
		u := firestore.Update{FieldPath: firestore.FieldPath(c.Path), Value: c.Value}
		if c.Delete {
			u.Value = firestore.Delete
		}
		updates = append(updates, u)
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})

	if _, err := r.doc(uid).Update(ctx, updates); err != nil {
		if firestoreutil.IsNotFound(err) {
			return common.ErrNotFound.WithMessage("Profile not found")
		}
		return err
	}
	return nil
}

func (r *firestoreRepository) Watch(ctx context.Context, uid string, fn func(*UserProfile), onError func(error)) *firestoreutil.Subscription {
	return firestoreutil.WatchDocument(ctx, r.doc(uid), func(snap *firestore.DocumentSnapshot) error {
		if !snap.Exists() {
			fn(nil)
			return nil
		}
		p, err := decode(snap)
		if err != nil {
			return err
		}
		fn(p)
		return nil
	}, onError)
}
