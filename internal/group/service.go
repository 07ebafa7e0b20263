// File: internal/group/service.go
package group

import (
	"context"
	"fmt"
	"strings"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/jazzslug"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service defines the interface for band business logic.
type Service interface {
	Create(ctx context.Context, name, creatorID string) (*Group, error)
	Get(ctx context.Context, id string) (*Group, error)
	GetByCode(ctx context.Context, code string) (*Group, error)
	SubscribeGroup(ctx context.Context, id string, fn func(*Group), onError func(error)) *firestoreutil.Subscription
	Members(ctx context.Context, id string) ([]Member, error)
	SubscribeMembers(ctx context.Context, id string, fn func([]Member), onError func(error)) *firestoreutil.Subscription
	Join(ctx context.Context, code, uid string) (*Group, error)
	Leave(ctx context.Context, groupID, uid string) error
	Delete(ctx context.Context, groupID, uid string) error
	Promote(ctx context.Context, groupID, targetID, actorID string) error
	Demote(ctx context.Context, groupID, targetID, actorID string) error
	RemoveMember(ctx context.Context, groupID, targetID, actorID string) error
	UserGroups(ctx context.Context, uid string) ([]Group, error)
	SetLastUsed(ctx context.Context, uid, groupID string) error
}

// ServiceImplementation implements the band Service interface.
type ServiceImplementation struct {
	repo         Repository
	generateCode func() string
	logger       *zap.Logger
}

// NewService creates a new band service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:         repo,
		generateCode: jazzslug.Generate,
		logger:       logger.Named("GroupService"),
	}
}

func (s *ServiceImplementation) audit(ctx context.Context, entry AuditEntry) {
	// The membership change already happened; a lost audit row is logged, not returned.
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit entry",
			zap.String("groupId", entry.GroupID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

func (s *ServiceImplementation) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code := s.generateCode()
		existing, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking band code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
		s.logger.Debug("Band code collision", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return "", common.ErrInternalServer.WithMessage("Failed to generate unique band code")
}

// Create makes a new band with creatorID as its first admin.
func (s *ServiceImplementation) Create(ctx context.Context, name, creatorID string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrBadRequest.WithMessage("Missing required field: name")
	}
	if creatorID == "" {
		return nil, common.ErrBadRequest.WithMessage("User ID is required")
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.CreateGroup(ctx, name, code)
	if err != nil {
		return nil, fmt.Errorf("creating band: %w", err)
	}
	if err := s.repo.SetMember(ctx, g.ID, creatorID, RoleAdmin); err != nil {
		return nil, fmt.Errorf("adding band creator: %w", err)
	}
	if err := s.repo.AddUserGroup(ctx, creatorID, g.ID); err != nil {
		return nil, fmt.Errorf("updating user bands: %w", err)
	}
	s.audit(ctx, AuditEntry{
		GroupID:  g.ID,
		Action:   AuditMemberJoined,
		ActorID:  creatorID,
		TargetID: creatorID,
		Metadata: map[string]interface{}{"role": string(RoleAdmin), "isCreator": true},
	})

	s.logger.Info("Band created", zap.String("groupId", g.ID), zap.String("code", code))
	return g, nil
}

func (s *ServiceImplementation) Get(ctx context.Context, id string) (*Group, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode looks a band up by its join code, ignoring case and surrounding space.
func (s *ServiceImplementation) GetByCode(ctx context.Context, code string) (*Group, error) {
	return s.repo.GetByCode(ctx, jazzslug.Normalize(code))
}

func (s *ServiceImplementation) SubscribeGroup(ctx context.Context, id string, fn func(*Group), onError func(error)) *firestoreutil.Subscription {
	return s.repo.WatchGroup(ctx, id, fn, onError)
}

func (s *ServiceImplementation) Members(ctx context.Context, id string) ([]Member, error) {
	return s.repo.Members(ctx, id)
}

func (s *ServiceImplementation) SubscribeMembers(ctx context.Context, id string, fn func([]Member), onError func(error)) *firestoreutil.Subscription {
	return s.repo.WatchMembers(ctx, id, fn, onError)
}

func (s *ServiceImplementation) Join(ctx context.Context, code, uid string) (*Group, error) {
	g, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, common.ErrNotFound.WithMessage("Band not found")
	}
	existing, err := s.repo.GetMember(ctx, g.ID, uid)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrConflict.WithMessage("Already a member of this band")
	}

	if err := s.repo.SetMember(ctx, g.ID, uid, RoleMember); err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}
	if err := s.repo.AddUserGroup(ctx, uid, g.ID); err != nil {
		return nil, fmt.Errorf("updating user bands: %w", err)
	}
	s.audit(ctx, AuditEntry{GroupID: g.ID, Action: AuditMemberJoined, ActorID: uid, TargetID: uid})

	s.logger.Info("Member joined band", zap.String("groupId", g.ID), zap.String("uid", uid))
	return g, nil
}

func (s *ServiceImplementation) Leave(ctx context.Context, groupID, uid string) error {
	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return err
	}
	member, ok := findMember(members, uid)
	if !ok {
		return common.ErrForbidden.WithMessage("Not a member of this band")
	}
	if member.IsAdmin() && countAdmins(members) == 1 {
		return common.ErrConflict.WithMessage("Cannot leave band as the only admin. Promote another member first.")
	}

	if err := s.repo.DeleteMember(ctx, groupID, uid); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if err := s.repo.RemoveUserGroup(ctx, uid, groupID); err != nil {
		return fmt.Errorf("updating user bands: %w", err)
	}
	s.audit(ctx, AuditEntry{GroupID: groupID, Action: AuditMemberLeft, ActorID: uid, TargetID: uid})
	return nil
}

// Delete removes a band whose only member is uid and which owns no setlists.
func (s *ServiceImplementation) Delete(ctx context.Context, groupID, uid string) error {
	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return err
	}
	if len(members) != 1 {
		return common.ErrConflict.WithMessage("Can only delete a band when you are the only member")
	}
	if members[0].UserID != uid {
		return common.ErrForbidden.WithMessage("Not a member of this band")
	}
	count, err := s.repo.CountSetlists(ctx, groupID)
	if err != nil {
		return err
	}
	if count > 0 {
		noun := "setlists"
		if count == 1 {
			noun = "setlist"
		}
		return common.ErrConflict.WithMessage("Band has %d %s. Delete them first.", count, noun)
	}

	if err := s.repo.DeleteMember(ctx, groupID, uid); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if err := s.repo.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("deleting band: %w", err)
	}
	if err := s.repo.RemoveUserGroup(ctx, uid, groupID); err != nil {
		return fmt.Errorf("updating user bands: %w", err)
	}
	s.logger.Info("Band deleted", zap.String("groupId", groupID), zap.String("uid", uid))
	return nil
}

func (s *ServiceImplementation) requireAdmin(ctx context.Context, groupID, actorID, message string) error {
	actor, err := s.repo.GetMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actor == nil || !actor.IsAdmin() {
		return common.ErrForbidden.WithMessage(message)
	}
	return nil
}

func (s *ServiceImplementation) Promote(ctx context.Context, groupID, targetID, actorID string) error {
	if err := s.requireAdmin(ctx, groupID, actorID, "Only admins can promote members"); err != nil {
		return err
	}
	if err := s.repo.UpdateMemberRole(ctx, groupID, targetID, RoleAdmin); err != nil {
		return fmt.Errorf("promoting member: %w", err)
	}
	s.audit(ctx, AuditEntry{GroupID: groupID, Action: AuditAdminGranted, ActorID: actorID, TargetID: targetID})
	return nil
}

func (s *ServiceImplementation) Demote(ctx context.Context, groupID, targetID, actorID string) error {
	members, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return err
	}
	if countAdmins(members) <= 1 {
		return common.ErrConflict.WithMessage("Cannot demote the last admin")
	}
	if err := s.requireAdmin(ctx, groupID, actorID, "Only admins can demote members"); err != nil {
		return err
	}
	if err := s.repo.UpdateMemberRole(ctx, groupID, targetID, RoleMember); err != nil {
		return fmt.Errorf("demoting member: %w", err)
	}
	s.audit(ctx, AuditEntry{GroupID: groupID, Action: AuditAdminRevoked, ActorID: actorID, TargetID: targetID})
	return nil
}

// RemoveMember lets an admin take another member out of the band.
func (s *ServiceImplementation) RemoveMember(ctx context.Context, groupID, targetID, actorID string) error {
	if targetID == actorID {
		return common.ErrBadRequest.WithMessage("Use leave to remove yourself from a band")
	}
	if err := s.requireAdmin(ctx, groupID, actorID, "Only admins can remove members"); err != nil {
		return err
	}
	target, err := s.repo.GetMember(ctx, groupID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return common.ErrNotFound.WithMessage("Not a member of this band")
	}

	if err := s.repo.DeleteMember(ctx, groupID, targetID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if err := s.repo.RemoveUserGroup(ctx, targetID, groupID); err != nil {
		return fmt.Errorf("updating user bands: %w", err)
	}
	s.audit(ctx, AuditEntry{
		GroupID:  groupID,
		Action:   AuditMemberRemoved,
		ActorID:  actorID,
		TargetID: targetID,
		Metadata: map[string]interface{}{"role": string(target.Role)},
	})
	return nil
}

// UserGroups loads every band uid belongs to. Bands that no longer exist are skipped.
func (s *ServiceImplementation) UserGroups(ctx context.Context, uid string) ([]Group, error) {
	ids, found, err := s.repo.UserGroupIDs(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !found || len(ids) == 0 {
		return []Group{}, nil
	}

	results := make([]*Group, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			grp, err := s.repo.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("loading band %s: %w", id, err)
			}
			results[i] = grp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(results))
	for _, grp := range results {
		if grp != nil {
			groups = append(groups, *grp)
		}
	}
	return groups, nil
}

func (s *ServiceImplementation) SetLastUsed(ctx context.Context, uid, groupID string) error {
	return s.repo.SetLastUsed(ctx, uid, groupID)
}
