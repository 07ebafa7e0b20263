// File: internal/profile/service.go
package profile

import (
	"context"
	"fmt"
	"strings"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/music"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"go.uber.org/zap"
)

// Service defines the interface for profile business logic.
type Service interface {
	Get(ctx context.Context, uid string) (*UserProfile, error)
	Create(ctx context.Context, uid, instrument, displayName string) (*UserProfile, error)
	Update(ctx context.Context, uid string, update ProfileUpdate) error
	Subscribe(ctx context.Context, uid string, fn func(*UserProfile), onError func(error)) *firestoreutil.Subscription
	SetPreferredKey(ctx context.Context, uid, songTitle, key, defaultKey string) error
	SetPreferredOctaveOffset(ctx context.Context, uid, songTitle string, offset int) error
	SetMetronomeSettings(ctx context.Context, uid, songTitle string, settings MetronomeSettings) error
	DisplayNames(ctx context.Context, uids []string) map[string]string
}

// ServiceImplementation implements the profile Service interface.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new profile service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, logger: logger.Named("ProfileService")}
}

func instrumentError() *common.APIError {
	ids := make([]string, 0, len(music.Instruments))
	for _, inst := range music.Instruments {
		ids = append(ids, inst.ID)
	}
	return common.ErrBadRequest.WithMessage("Invalid instrument. Must be one of: %s", strings.Join(ids, ", "))
}

func requireUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return common.ErrBadRequest.WithMessage("User ID is required")
	}
	return nil
}

func (s *ServiceImplementation) Get(ctx context.Context, uid string) (*UserProfile, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, uid)
	if err != nil {
		s.logger.Error("Failed to load profile", zap.String("uid", uid), zap.Error(err))
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return p, nil
}

func (s *ServiceImplementation) Create(ctx context.Context, uid, instrument, displayName string) (*UserProfile, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if !music.IsValidInstrumentID(instrument) {
		return nil, instrumentError()
	}
	p := &UserProfile{ID: uid, Instrument: instrument, DisplayName: strings.TrimSpace(displayName)}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create profile", zap.String("uid", uid), zap.Error(err))
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	s.logger.Info("Profile created", zap.String("uid", uid), zap.String("instrument", instrument))
	return p, nil
}

func (s *ServiceImplementation) Update(ctx context.Context, uid string, update ProfileUpdate) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	var changes []FieldChange
	if update.Instrument != nil {
		if !music.IsValidInstrumentID(*update.Instrument) {
			return instrumentError()
		}
		changes = append(changes, FieldChange{Path: []string{"instrument"}, Value: *update.Instrument})
	}
	if update.DisplayName != nil {
		changes = append(changes, FieldChange{Path: []string{"displayName"}, Value: strings.TrimSpace(*update.DisplayName)})
	}
	return s.repo.Update(ctx, uid, changes)
}

func (s *ServiceImplementation) Subscribe(ctx context.Context, uid string, fn func(*UserProfile), onError func(error)) *firestoreutil.Subscription {
	return s.repo.Watch(ctx, uid, fn, onError)
}

// SetPreferredKey stores key for songTitle, or clears it when key is the song's default.
func (s *ServiceImplementation) SetPreferredKey(ctx context.Context, uid, songTitle, key, defaultKey string) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if songTitle == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: song")
	}
	change := FieldChange{Path: []string{"preferredKeys", songTitle}}
	if key == defaultKey {
		change.Delete = true
	} else {
		change.Value = key
	}
	return s.repo.Update(ctx, uid, []FieldChange{change})
}

// SetPreferredOctaveOffset stores offset for songTitle. Zero clears it.
func (s *ServiceImplementation) SetPreferredOctaveOffset(ctx context.Context, uid, songTitle string, offset int) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if songTitle == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: song")
	}
	change := FieldChange{Path: []string{"preferredOctaveOffsets", songTitle}}
	if offset == 0 {
		change.Delete = true
	} else {
		change.Value = offset
	}
	return s.repo.Update(ctx, uid, []FieldChange{change})
}

// SetMetronomeSettings stores settings for songTitle. Empty settings clear it.
func (s *ServiceImplementation) SetMetronomeSettings(ctx context.Context, uid, songTitle string, settings MetronomeSettings) error {
	if err := requireUID(uid); err != nil {
		return err
	}
	if songTitle == "" {
		return common.ErrBadRequest.WithMessage("Missing required field: song")
	}
	if settings.BPM != nil && (*settings.BPM < MinBPM || *settings.BPM > MaxBPM) {
		return common.ErrBadRequest.WithMessage("BPM must be between %d and %d", MinBPM, MaxBPM)
	}
	if settings.TimeSignature != nil && !ValidTimeSignature(*settings.TimeSignature) {
		return common.ErrBadRequest.WithMessage("Invalid time signature. Must be one of: %s", strings.Join(TimeSignatures, ", "))
	}

	change := FieldChange{Path: []string{"metronomeSettings", songTitle}}
	if settings.IsEmpty() {
		change.Delete = true
	} else {
		value := map[string]interface{}{}
		if settings.BPM != nil {
			value["bpm"] = *settings.BPM
		}
		if settings.TimeSignature != nil {
			value["timeSignature"] = *settings.TimeSignature
		}
		change.Value = value
	}
	return s.repo.Update(ctx, uid, []FieldChange{change})
}

// DisplayNames maps each uid to a printable name. Lookup failures degrade to short ids.
func (s *ServiceImplementation) DisplayNames(ctx context.Context, uids []string) map[string]string {
	names := make(map[string]string, len(uids))
	if len(uids) == 0 {
		return names
	}

	profiles, err := s.repo.GetMany(ctx, firestoreutil.Limit(uids, firestoreutil.MaxInFilter))
	if err != nil {
		s.logger.Warn("Display name lookup failed", zap.Int("count", len(uids)), zap.Error(err))
		profiles = nil
	}
	for _, p := range profiles {
		names[p.ID] = nameFor(p)
	}
	for _, uid := range uids {
		if _, ok := names[uid]; !ok {
			names[uid] = firestoreutil.ShortID(uid) + "..."
		}
	}
	return names
}

func nameFor(p UserProfile) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return firestoreutil.ShortID(p.ID)
}
