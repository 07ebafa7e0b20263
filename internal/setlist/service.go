// File: internal/setlist/service.go
package setlist

import (
	"context"
	"fmt"
	"strings"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for setlist business logic.
type Service interface {
	Subscribe(ctx context.Context, groupIDs []string, fn func([]Setlist), onError func(error)) *firestoreutil.Subscription
	SubscribeOne(ctx context.Context, id string, fn func(*Setlist), onError func(error)) *firestoreutil.Subscription
	Get(ctx context.Context, id string) (*Setlist, error)
	List(ctx context.Context, groupIDs []string) ([]Setlist, error)
	Create(ctx context.Context, name, ownerID, groupID string) (string, error)
	Update(ctx context.Context, id string, update SetlistUpdate) error
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, id string, input AddItemInput) (Item, error)
	AddSetBreak(ctx context.Context, id string) (Item, error)
	RemoveItem(ctx context.Context, id, itemID string) error
	ReorderItems(ctx context.Context, id string, items []Item) error
	UpdateItem(ctx context.Context, id, itemID string, update ItemUpdate) error
	Duplicate(ctx context.Context, sourceID, newName, ownerID string) (string, error)
}

// ServiceImplementation implements the setlist Service interface.
type ServiceImplementation struct {
	repo   Repository
	newID  func() string
	logger *zap.Logger
}

// NewService creates a new setlist service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		newID:  uuid.NewString,
		logger: logger.Named("SetlistService"),
	}
}

// Subscribe streams the setlists of groupIDs, newest first. A nil slice streams every
// setlist. An empty slice delivers one empty result and nothing more.
func (s *ServiceImplementation) Subscribe(ctx context.Context, groupIDs []string, fn func([]Setlist), onError func(error)) *firestoreutil.Subscription {
	if groupIDs != nil && len(groupIDs) == 0 {
		fn([]Setlist{})
		return firestoreutil.Noop()
	}
	if len(groupIDs) > firestoreutil.MaxInFilter {
		s.logger.Warn("Too many bands for a single setlist query, truncating",
			zap.Int("count", len(groupIDs)), zap.Int("limit", firestoreutil.MaxInFilter))
	}
	return s.repo.Watch(ctx, limit(groupIDs), fn, onError)
}

func limit(groupIDs []string) []string {
	if groupIDs == nil {
		return nil
	}
	return firestoreutil.Limit(groupIDs, firestoreutil.MaxInFilter)
}

func (s *ServiceImplementation) SubscribeOne(ctx context.Context, id string, fn func(*Setlist), onError func(error)) *firestoreutil.Subscription {
	return s.repo.WatchOne(ctx, id, fn, onError)
}

func (s *ServiceImplementation) Get(ctx context.Context, id string) (*Setlist, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImplementation) List(ctx context.Context, groupIDs []string) ([]Setlist, error) {
	if groupIDs != nil && len(groupIDs) == 0 {
		return []Setlist{}, nil
	}
	return s.repo.List(ctx, limit(groupIDs))
}

func (s *ServiceImplementation) mustGet(ctx context.Context, id, notFound string) (*Setlist, error) {
	sl, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil {
		return nil, common.ErrNotFound.WithMessage(notFound)
	}
	return sl, nil
}

func (s *ServiceImplementation) Create(ctx context.Context, name, ownerID, groupID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", common.ErrBadRequest.WithMessage("Missing required field: name")
	}
	id, err := s.repo.Create(ctx, name, ownerID, groupID)
	if err != nil {
		return "", fmt.Errorf("creating setlist: %w", err)
	}
	s.logger.Info("Setlist created", zap.String("setlistId", id), zap.String("groupId", groupID))
	return id, nil
}

func (s *ServiceImplementation) Update(ctx context.Context, id string, update SetlistUpdate) error {
	return s.repo.Update(ctx, id, update)
}

func (s *ServiceImplementation) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *ServiceImplementation) AddItem(ctx context.Context, id string, input AddItemInput) (Item, error) {
	if strings.TrimSpace(input.SongTitle) == "" {
		return Item{}, common.ErrBadRequest.WithMessage("Missing required field: song")
	}
	sl, err := s.mustGet(ctx, id, "Setlist not found")
	if err != nil {
		return Item{}, err
	}
	item := Item{
		ID:           s.newID(),
		SongTitle:    input.SongTitle,
		ConcertKey:   input.ConcertKey,
		Position:     len(sl.Items),
		OctaveOffset: input.OctaveOffset,
		Notes:        input.Notes,
	}
	items := append(append([]Item{}, sl.Items...), item)
	return item, s.repo.Update(ctx, id, SetlistUpdate{Items: items})
}

func (s *ServiceImplementation) AddSetBreak(ctx context.Context, id string) (Item, error) {
	sl, err := s.mustGet(ctx, id, "Setlist not found")
	if err != nil {
		return Item{}, err
	}
	item := Item{ID: s.newID(), Position: len(sl.Items), IsSetBreak: true}
	items := append(append([]Item{}, sl.Items...), item)
	return item, s.repo.Update(ctx, id, SetlistUpdate{Items: items})
}

func (s *ServiceImplementation) RemoveItem(ctx context.Context, id, itemID string) error {
	sl, err := s.mustGet(ctx, id, "Setlist not found")
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, SetlistUpdate{Items: without(sl.Items, itemID)})
}

// ReorderItems stores items in the given order.
func (s *ServiceImplementation) ReorderItems(ctx context.Context, id string, items []Item) error {
	return s.repo.Update(ctx, id, SetlistUpdate{Items: reindex(items)})
}

func (s *ServiceImplementation) UpdateItem(ctx context.Context, id, itemID string, update ItemUpdate) error {
	sl, err := s.mustGet(ctx, id, "Setlist not found")
	if err != nil {
		return err
	}
	items := make([]Item, len(sl.Items))
	for i, item := range sl.Items {
		if item.ID == itemID {
			item = update.apply(item)
		}
		items[i] = item
	}
	return s.repo.Update(ctx, id, SetlistUpdate{Items: items})
}

// Duplicate copies sourceID into a new setlist in the same band, with fresh item ids.
func (s *ServiceImplementation) Duplicate(ctx context.Context, sourceID, newName, ownerID string) (string, error) {
	src, err := s.mustGet(ctx, sourceID, "Source setlist not found")
	if err != nil {
		return "", err
	}
	newID, err := s.Create(ctx, newName, ownerID, src.GroupID)
	if err != nil {
		return "", err
	}
	if len(src.Items) == 0 {
		return newID, nil
	}
	items := reindex(src.Items)
	for i := range items {
		items[i].ID = s.newID()
	}
	if err := s.repo.Update(ctx, newID, SetlistUpdate{Items: items}); err != nil {
		return "", fmt.Errorf("copying setlist items: %w", err)
	}
	return newID, nil
}
