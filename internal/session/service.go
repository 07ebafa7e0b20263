// File: internal/session/service.go
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"go.uber.org/zap"
)

// Service defines the interface for Groove Sync business logic.
type Service interface {
	Get(ctx context.Context, groupID string) (*Session, error)
	Start(ctx context.Context, groupID, leaderID, leaderName string) error
	ShareSong(ctx context.Context, groupID string, song SharedSong) error
	Touch(ctx context.Context, groupID string) error
	End(ctx context.Context, groupID string) error
	SetFollowing(ctx context.Context, groupID, uid string, following bool) error
	Subscribe(ctx context.Context, groupID string, fn func(*Session), onError func(error)) *firestoreutil.Subscription
	SubscribeAll(ctx context.Context, groupIDs []string, fn func([]Session), onError func(error)) *firestoreutil.Subscription
}

// ServiceImplementation implements the session Service interface.
type ServiceImplementation struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a new Groove Sync service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		now:    time.Now,
		logger: logger.Named("SessionService"),
	}
}

// live drops sessions without a leader and deletes stale ones. It returns nil for both.
func (s *ServiceImplementation) live(ctx context.Context, sess *Session) *Session {
	if sess == nil || sess.LeaderID == "" {
		return nil
	}
	if sess.IsStale(s.now()) {
		s.logger.Info("Removing stale Groove Sync session",
			zap.String("groupId", sess.GroupID),
			zap.Time("lastActivityAt", sess.LastActivityAt))
		if err := s.repo.Delete(ctx, sess.GroupID); err != nil {
			s.logger.Warn("Failed to delete stale session", zap.String("groupId", sess.GroupID), zap.Error(err))
		}
		return nil
	}
	return sess
}

// Get returns the band's active session, or nil when there is none or it has gone stale.
func (s *ServiceImplementation) Get(ctx context.Context, groupID string) (*Session, error) {
	sess, err := s.repo.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.live(ctx, sess), nil
}

// Start makes leaderID the leader of a fresh session, replacing any existing one.
func (s *ServiceImplementation) Start(ctx context.Context, groupID, leaderID, leaderName string) error {
	if groupID == "" || leaderID == "" {
		return common.ErrBadRequest.WithMessage("Band and leader are required")
	}
	leaderName = strings.TrimSpace(leaderName)
	if leaderName == "" {
		leaderName = firestoreutil.ShortID(leaderID)
	}
	if err := s.repo.Start(ctx, groupID, leaderID, leaderName); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	s.logger.Info("Groove Sync session started", zap.String("groupId", groupID), zap.String("leaderId", leaderID))
	return nil
}

func noSession(err error) error {
	if firestoreutil.IsNotFound(err) {
		return common.ErrNotFound.WithMessage("No active Groove Sync session")
	}
	return err
}

// ShareSong pushes song to every follower and counts as leader activity.
func (s *ServiceImplementation) ShareSong(ctx context.Context, groupID string, song SharedSong) error {
	song.Title = strings.TrimSpace(song.Title)
	song.ConcertKey = strings.ToLower(strings.TrimSpace(song.ConcertKey))
	if song.Title == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: title")
	}
	if song.ConcertKey == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: concertKey")
	}
	switch song.Source {
	case "":
		song.Source = SourceStandard
	case SourceStandard, SourceCustom:
	default:
		return common.ErrBadRequest.WithMessage("Invalid source: %s", song.Source)
	}
	if err := s.repo.UpdateCurrentSong(ctx, groupID, song); err != nil {
		return noSession(err)
	}
	return nil
}

func (s *ServiceImplementation) Touch(ctx context.Context, groupID string) error {
	return noSession(s.repo.Touch(ctx, groupID))
}

// End deletes the session. Ending a band with no session is not an error.
func (s *ServiceImplementation) End(ctx context.Context, groupID string) error {
	if err := s.repo.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	s.logger.Info("Groove Sync session ended", zap.String("groupId", groupID))
	return nil
}

func (s *ServiceImplementation) SetFollowing(ctx context.Context, groupID, uid string, following bool) error {
	if err := s.repo.SetFollowing(ctx, groupID, uid, following); err != nil {
		if firestoreutil.IsNotFound(err) {
			return common.ErrNotFound.WithMessage("Not a member of this band")
		}
		return err
	}
	return nil
}

// Subscribe delivers the band's live session, or nil when there is none. Stale sessions
// are deleted and reported as nil. A listener error also delivers nil before onError.
func (s *ServiceImplementation) Subscribe(ctx context.Context, groupID string, fn func(*Session), onError func(error)) *firestoreutil.Subscription {
	return s.repo.Watch(ctx, groupID, func(sess *Session) {
		fn(s.live(ctx, sess))
	}, func(err error) {
		s.logger.Warn("Groove Sync listener failed", zap.String("groupId", groupID), zap.Error(err))
		fn(nil)
		if onError != nil {
			onError(err)
		}
	})
}

// SubscribeAll watches several bands and delivers every live session on each change, in
// groupIDs order. An empty list delivers an empty slice once.
func (s *ServiceImplementation) SubscribeAll(ctx context.Context, groupIDs []string, fn func([]Session), onError func(error)) *firestoreutil.Subscription {
	if len(groupIDs) == 0 {
		fn([]Session{})
		return firestoreutil.Noop()
	}

	var mu sync.Mutex
	current := make(map[string]Session, len(groupIDs))
	deliver := func() {
		list := make([]Session, 0, len(current))
		for _, id := range groupIDs {
			if sess, ok := current[id]; ok {
				list = append(list, sess)
			}
		}
		fn(list)
	}

	ctx, cancel := context.WithCancel(ctx)
	subs := make([]*firestoreutil.Subscription, 0, len(groupIDs))
	for _, id := range groupIDs {
		id := id
		subs = append(subs, s.Subscribe(ctx, id, func(sess *Session) {
			mu.Lock()
			defer mu.Unlock()
			if sess != nil {
				current[id] = *sess
			} else {
				delete(current, id)
			}
			deliver()
		}, onError))
	}

	return firestoreutil.Start(ctx, func(ctx context.Context) error {
		defer cancel()
		<-ctx.Done()
		for _, sub := range subs {
			sub.Stop()
		}
		return ctx.Err()
	}, nil)
}
