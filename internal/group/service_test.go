package group

import (
	"context"
	"errors"
	"testing"
	"time"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockGroupRepository is a mock type for group.Repository
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Get(ctx context.Context, id string) (*Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockGroupRepository) GetByCode(ctx context.Context, code string) (*Group, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockGroupRepository) CreateGroup(ctx context.Context, name, code string) (*Group, error) {
	args := m.Called(ctx, name, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockGroupRepository) DeleteGroup(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGroupRepository) WatchGroup(ctx context.Context, id string, fn func(*Group), onError func(error)) *firestoreutil.Subscription {
	return m.Called(ctx, id, fn, onError).Get(0).(*firestoreutil.Subscription)
}

func (m *MockGroupRepository) Members(ctx context.Context, groupID string) ([]Member, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Member), args.Error(1)
}

func (m *MockGroupRepository) GetMember(ctx context.Context, groupID, uid string) (*Member, error) {
	args := m.Called(ctx, groupID, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Member), args.Error(1)
}

func (m *MockGroupRepository) SetMember(ctx context.Context, groupID, uid string, role Role) error {
	return m.Called(ctx, groupID, uid, role).Error(0)
}

func (m *MockGroupRepository) UpdateMemberRole(ctx context.Context, groupID, uid string, role Role) error {
	return m.Called(ctx, groupID, uid, role).Error(0)
}

func (m *MockGroupRepository) DeleteMember(ctx context.Context, groupID, uid string) error {
	return m.Called(ctx, groupID, uid).Error(0)
}

func (m *MockGroupRepository) WatchMembers(ctx context.Context, groupID string, fn func([]Member), onError func(error)) *firestoreutil.Subscription {
	return m.Called(ctx, groupID, fn, onError).Get(0).(*firestoreutil.Subscription)
}

func (m *MockGroupRepository) AddUserGroup(ctx context.Context, uid, groupID string) error {
	return m.Called(ctx, uid, groupID).Error(0)
}

func (m *MockGroupRepository) RemoveUserGroup(ctx context.Context, uid, groupID string) error {
	return m.Called(ctx, uid, groupID).Error(0)
}

func (m *MockGroupRepository) SetLastUsed(ctx context.Context, uid, groupID string) error {
	return m.Called(ctx, uid, groupID).Error(0)
}

func (m *MockGroupRepository) UserGroupIDs(ctx context.Context, uid string) ([]string, bool, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *MockGroupRepository) CountSetlists(ctx context.Context, groupID string) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

func (m *MockGroupRepository) AppendAudit(ctx context.Context, entry AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func setupGroupServiceTestSuite(t *testing.T, codes ...string) (*ServiceImplementation, *MockGroupRepository) {
	t.Helper()
	repo := new(MockGroupRepository)
	service := NewService(repo, zap.NewNop())
	if len(codes) > 0 {
		next := 0
		service.generateCode = func() string {
			code := codes[next%len(codes)]
			next++
			return code
		}
	}
	return service, repo
}

func member(uid string, role Role, minutes int) Member {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return Member{UserID: uid, Role: role, JoinedAt: base.Add(time.Duration(minutes) * time.Minute)}
}

func TestGroupService_Create(t *testing.T) {
	service, repo := setupGroupServiceTestSuite(t, "bebop-monk-tritone", "cool-miles-vamp")
	ctx := context.Background()

	repo.On("GetByCode", ctx, "bebop-monk-tritone").Return(&Group{ID: "taken"}, nil).Once()
	repo.On("GetByCode", ctx, "cool-miles-vamp").Return(nil, nil).Once()
	repo.On("CreateGroup", ctx, "Tuesday Trio", "cool-miles-vamp").
		Return(&Group{ID: "g1", Name: "Tuesday Trio", Code: "cool-miles-vamp"}, nil).Once()
	repo.On("SetMember", ctx, "g1", "u1", RoleAdmin).Return(nil).Once()
	repo.On("AddUserGroup", ctx, "u1", "g1").Return(nil).Once()
	repo.On("AppendAudit", ctx, AuditEntry{
		GroupID:  "g1",
		Action:   AuditMemberJoined,
		ActorID:  "u1",
		TargetID: "u1",
		Metadata: map[string]interface{}{"role": "admin", "isCreator": true},
	}).Return(nil).Once()

	g, err := service.Create(ctx, " Tuesday Trio ", "u1")
	require.NoError(t, err)
	assert.Equal(t, "cool-miles-vamp", g.Code)
	repo.AssertExpectations(t)
}

func TestGroupService_CreateGivesUpAfterCollisions(t *testing.T) {
	service, repo := setupGroupServiceTestSuite(t, "bebop-monk-tritone")
	ctx := context.Background()
	repo.On("GetByCode", ctx, "bebop-monk-tritone").Return(&Group{ID: "taken"}, nil).Times(MaxCodeAttempts)

	_, err := service.Create(ctx, "Tuesday Trio", "u1")
	require.Error(t, err)
	assert.Equal(t, "Failed to generate unique band code", err.Error())
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestGroupService_AuditFailureDoesNotFailCreate(t *testing.T) {
	service, repo := setupGroupServiceTestSuite(t, "cool-miles-vamp")
	ctx := context.Background()
	repo.On("GetByCode", ctx, "cool-miles-vamp").Return(nil, nil).Once()
	repo.On("CreateGroup", ctx, "Trio", "cool-miles-vamp").Return(&Group{ID: "g1"}, nil).Once()
	repo.On("SetMember", ctx, "g1", "u1", RoleAdmin).Return(nil).Once()
	repo.On("AddUserGroup", ctx, "u1", "g1").Return(nil).Once()
	repo.On("AppendAudit", ctx, mock.Anything).Return(errors.New("quota")).Once()

	_, err := service.Create(ctx, "Trio", "u1")
	assert.NoError(t, err)
}

func TestGroupService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes code and joins as member", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("GetByCode", ctx, "cool-miles-vamp").Return(&Group{ID: "g1"}, nil).Once()
		repo.On("GetMember", ctx, "g1", "u2").Return(nil, nil).Once()
		repo.On("SetMember", ctx, "g1", "u2", RoleMember).Return(nil).Once()
		repo.On("AddUserGroup", ctx, "u2", "g1").Return(nil).Once()
		repo.On("AppendAudit", ctx, AuditEntry{GroupID: "g1", Action: AuditMemberJoined, ActorID: "u2", TargetID: "u2"}).Return(nil).Once()

		g, err := service.Join(ctx, "  Cool-Miles-VAMP ", "u2")
		require.NoError(t, err)
		assert.Equal(t, "g1", g.ID)
		repo.AssertExpectations(t)
	})

	t.Run("unknown code", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("GetByCode", ctx, "nope").Return(nil, nil).Once()

		_, err := service.Join(ctx, "nope", "u2")
		assert.True(t, errors.Is(err, common.ErrNotFound))
		assert.Equal(t, "Band not found", err.Error())
	})

	t.Run("already a member", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("GetByCode", ctx, "cool-miles-vamp").Return(&Group{ID: "g1"}, nil).Once()
		existing := member("u2", RoleMember, 0)
		repo.On("GetMember", ctx, "g1", "u2").Return(&existing, nil).Once()

		_, err := service.Join(ctx, "cool-miles-vamp", "u2")
		assert.True(t, errors.Is(err, common.ErrConflict))
		assert.Equal(t, "Already a member of this band", err.Error())
	})
}

func TestGroupService_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("sole admin is refused", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0), member("u2", RoleMember, 1)}, nil).Once()

		err := service.Leave(ctx, "g1", "u1")
		assert.Equal(t, "Cannot leave band as the only admin. Promote another member first.", err.Error())
		repo.AssertNotCalled(t, "DeleteMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not a member", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0)}, nil).Once()

		err := service.Leave(ctx, "g1", "u9")
		assert.Equal(t, "Not a member of this band", err.Error())
	})

	t.Run("member leaves", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0), member("u2", RoleMember, 1)}, nil).Once()
		repo.On("DeleteMember", ctx, "g1", "u2").Return(nil).Once()
		repo.On("RemoveUserGroup", ctx, "u2", "g1").Return(nil).Once()
		repo.On("AppendAudit", ctx, AuditEntry{GroupID: "g1", Action: AuditMemberLeft, ActorID: "u2", TargetID: "u2"}).Return(nil).Once()

		require.NoError(t, service.Leave(ctx, "g1", "u2"))
		repo.AssertExpectations(t)
	})
}

func TestGroupService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("other members present", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0), member("u2", RoleMember, 1)}, nil).Once()

		err := service.Delete(ctx, "g1", "u1")
		assert.Equal(t, "Can only delete a band when you are the only member", err.Error())
	})

	t.Run("caller is not the member", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0)}, nil).Once()

		err := service.Delete(ctx, "g1", "u2")
		assert.Equal(t, "Not a member of this band", err.Error())
	})

	for count, want := range map[int]string{
		1: "Band has 1 setlist. Delete them first.",
		3: "Band has 3 setlists. Delete them first.",
	} {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0)}, nil).Once()
		repo.On("CountSetlists", ctx, "g1").Return(count, nil).Once()

		err := service.Delete(ctx, "g1", "u1")
		assert.Equal(t, want, err.Error())
	}

	t.Run("deletes member then band then user link", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		var order []string
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0)}, nil).Once()
		repo.On("CountSetlists", ctx, "g1").Return(0, nil).Once()
		repo.On("DeleteMember", ctx, "g1", "u1").Return(nil).Run(func(mock.Arguments) { order = append(order, "member") }).Once()
		repo.On("DeleteGroup", ctx, "g1").Return(nil).Run(func(mock.Arguments) { order = append(order, "group") }).Once()
		repo.On("RemoveUserGroup", ctx, "u1", "g1").Return(nil).Run(func(mock.Arguments) { order = append(order, "user") }).Once()

		require.NoError(t, service.Delete(ctx, "g1", "u1"))
		assert.Equal(t, []string{"member", "group", "user"}, order)
	})
}

func TestGroupService_PromoteRequiresAdmin(t *testing.T) {
	service, repo := setupGroupServiceTestSuite(t)
	ctx := context.Background()
	plain := member("u2", RoleMember, 1)
	repo.On("GetMember", ctx, "g1", "u2").Return(&plain, nil).Once()

	err := service.Promote(ctx, "g1", "u3", "u2")
	assert.True(t, errors.Is(err, common.ErrForbidden))
	assert.Equal(t, "Only admins can promote members", err.Error())
	repo.AssertNotCalled(t, "UpdateMemberRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGroupService_Promote(t *testing.T) {
	service, repo := setupGroupServiceTestSuite(t)
	ctx := context.Background()
	admin := member("u1", RoleAdmin, 0)
	repo.On("GetMember", ctx, "g1", "u1").Return(&admin, nil).Once()
	repo.On("UpdateMemberRole", ctx, "g1", "u2", RoleAdmin).Return(nil).Once()
	repo.On("AppendAudit", ctx, AuditEntry{GroupID: "g1", Action: AuditAdminGranted, ActorID: "u1", TargetID: "u2"}).Return(nil).Once()

	require.NoError(t, service.Promote(ctx, "g1", "u2", "u1"))
	repo.AssertExpectations(t)
}

func TestGroupService_Demote(t *testing.T) {
	ctx := context.Background()

	t.Run("last admin", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0), member("u2", RoleMember, 1)}, nil).Once()

		err := service.Demote(ctx, "g1", "u1", "u1")
		assert.Equal(t, "Cannot demote the last admin", err.Error())
	})

	t.Run("actor must be admin", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("Members", ctx, "g1").Return([]Member{member("u1", RoleAdmin, 0), member("u2", RoleAdmin, 1), member("u3", RoleMember, 2)}, nil).Once()
		repo.On("GetMember", ctx, "g1", "u3").Return(nil, nil).Once()

		err := service.Demote(ctx, "g1", "u2", "u3")
		assert.Equal(t, "Only admins can demote members", err.Error())
	})

	t.Run("admin demotes admin", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		admin := member("u1", RoleAdmin, 0)
		repo.On("Members", ctx, "g1").Return([]Member{admin, member("u2", RoleAdmin, 1)}, nil).Once()
		repo.On("GetMember", ctx, "g1", "u1").Return(&admin, nil).Once()
		repo.On("UpdateMemberRole", ctx, "g1", "u2", RoleMember).Return(nil).Once()
		repo.On("AppendAudit", ctx, AuditEntry{GroupID: "g1", Action: AuditAdminRevoked, ActorID: "u1", TargetID: "u2"}).Return(nil).Once()

		require.NoError(t, service.Demote(ctx, "g1", "u2", "u1"))
		repo.AssertExpectations(t)
	})
}

func TestGroupService_RemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot remove self", func(t *testing.T) {
		service, _ := setupGroupServiceTestSuite(t)
		err := service.RemoveMember(ctx, "g1", "u1", "u1")
		assert.True(t, errors.Is(err, common.ErrBadRequest))
	})

	t.Run("admin removes member", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		admin := member("u1", RoleAdmin, 0)
		target := member("u2", RoleMember, 1)
		repo.On("GetMember", ctx, "g1", "u1").Return(&admin, nil).Once()
		repo.On("GetMember", ctx, "g1", "u2").Return(&target, nil).Once()
		repo.On("DeleteMember", ctx, "g1", "u2").Return(nil).Once()
		repo.On("RemoveUserGroup", ctx, "u2", "g1").Return(nil).Once()
		repo.On("AppendAudit", ctx, AuditEntry{
			GroupID: "g1", Action: AuditMemberRemoved, ActorID: "u1", TargetID: "u2",
			Metadata: map[string]interface{}{"role": "member"},
		}).Return(nil).Once()

		require.NoError(t, service.RemoveMember(ctx, "g1", "u2", "u1"))
		repo.AssertExpectations(t)
	})
}

func TestGroupService_UserGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("UserGroupIDs", ctx, "u1").Return(nil, false, nil).Once()

		groups, err := service.UserGroups(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("drops deleted bands and keeps order", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("UserGroupIDs", ctx, "u1").Return([]string{"g1", "gone", "g2"}, true, nil).Once()
		repo.On("Get", mock.Anything, "g1").Return(&Group{ID: "g1", Name: "Trio"}, nil).Once()
		repo.On("Get", mock.Anything, "gone").Return(nil, nil).Once()
		repo.On("Get", mock.Anything, "g2").Return(&Group{ID: "g2", Name: "Big Band"}, nil).Once()

		groups, err := service.UserGroups(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "g1", groups[0].ID)
		assert.Equal(t, "g2", groups[1].ID)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		service, repo := setupGroupServiceTestSuite(t)
		repo.On("UserGroupIDs", ctx, "u1").Return([]string{"g1"}, true, nil).Once()
		repo.On("Get", mock.Anything, "g1").Return(nil, errors.New("unavailable")).Once()

		_, err := service.UserGroups(ctx, "u1")
		assert.Error(t, err)
	})
}

func TestMemberHelpers(t *testing.T) {
	members := []Member{member("late", RoleMember, 5), member("early", RoleAdmin, 0)}
	assert.Equal(t, 1, countAdmins(members))
	m, ok := findMember(members, "late")
	assert.True(t, ok)
	assert.Equal(t, RoleMember, m.Role)
}
