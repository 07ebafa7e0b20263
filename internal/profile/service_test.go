package profile

import (
	"context"
	"errors"
	"testing"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProfileRepository is a mock type for profile.Repository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, uid string) (*UserProfile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserProfile), args.Error(1)
}

func (m *MockProfileRepository) GetMany(ctx context.Context, uids []string) ([]UserProfile, error) {
	args := m.Called(ctx, uids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UserProfile), args.Error(1)
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) Update(ctx context.Context, uid string, changes []FieldChange) error {
	args := m.Called(ctx, uid, changes)
	return args.Error(0)
}

func (m *MockProfileRepository) Watch(ctx context.Context, uid string, fn func(*UserProfile), onError func(error)) *firestoreutil.Subscription {
	args := m.Called(ctx, uid, fn, onError)
	return args.Get(0).(*firestoreutil.Subscription)
}

func setupProfileServiceTestSuite(t *testing.T) (*ServiceImplementation, *MockProfileRepository) {
	t.Helper()
	repo := new(MockProfileRepository)
	return NewService(repo, zap.NewNop()), repo
}

func TestProfileService_GetMissingReturnsNil(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "uid-1").Return(nil, nil).Once()

	p, err := service.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Nil(t, p)
	repo.AssertExpectations(t)
}

func TestProfileService_Create(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Create", ctx, mock.MatchedBy(func(p *UserProfile) bool {
		return p.ID == "uid-1" && p.Instrument == "tenor-sax" && p.DisplayName == "Sonny"
	})).Return(nil).Once()

	p, err := service.Create(ctx, "uid-1", "tenor-sax", "  Sonny ")
	require.NoError(t, err)
	assert.Equal(t, "Sonny", p.DisplayName)
	repo.AssertExpectations(t)
}

func TestProfileService_CreateRejectsUnknownInstrument(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)

	_, err := service.Create(context.Background(), "uid-1", "kazoo", "Sonny")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBadRequest))
	assert.Contains(t, err.Error(), "Invalid instrument. Must be one of: piano, guitar")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProfileService_UpdatePartial(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	name := "Bird"
	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"displayName"}, Value: "Bird"},
	}).Return(nil).Once()

	require.NoError(t, service.Update(ctx, "uid-1", ProfileUpdate{DisplayName: &name}))
	repo.AssertExpectations(t)
}

func TestProfileService_SetPreferredKey(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()

	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"preferredKeys", "St. Thomas"}, Value: "bf"},
	}).Return(nil).Once()
	require.NoError(t, service.SetPreferredKey(ctx, "uid-1", "St. Thomas", "bf", "c"))

	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"preferredKeys", "St. Thomas"}, Delete: true},
	}).Return(nil).Once()
	require.NoError(t, service.SetPreferredKey(ctx, "uid-1", "St. Thomas", "c", "c"))

	repo.AssertExpectations(t)
}

func TestProfileService_SetPreferredOctaveOffset(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()

	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"preferredOctaveOffsets", "Blue Monk"}, Value: -1},
	}).Return(nil).Once()
	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"preferredOctaveOffsets", "Blue Monk"}, Delete: true},
	}).Return(nil).Once()

	require.NoError(t, service.SetPreferredOctaveOffset(ctx, "uid-1", "Blue Monk", -1))
	require.NoError(t, service.SetPreferredOctaveOffset(ctx, "uid-1", "Blue Monk", 0))
	repo.AssertExpectations(t)
}

func TestProfileService_SetMetronomeSettings(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	bpm := 180
	ts := "3/4"

	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"metronomeSettings", "Waltz"}, Value: map[string]interface{}{"bpm": 180, "timeSignature": "3/4"}},
	}).Return(nil).Once()
	require.NoError(t, service.SetMetronomeSettings(ctx, "uid-1", "Waltz", MetronomeSettings{BPM: &bpm, TimeSignature: &ts}))

	repo.On("Update", ctx, "uid-1", []FieldChange{
		{Path: []string{"metronomeSettings", "Waltz"}, Delete: true},
	}).Return(nil).Once()
	require.NoError(t, service.SetMetronomeSettings(ctx, "uid-1", "Waltz", MetronomeSettings{}))

	repo.AssertExpectations(t)
}

func TestProfileService_SetMetronomeSettingsValidation(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	slow := 10
	odd := "11/8"

	err := service.SetMetronomeSettings(ctx, "uid-1", "Waltz", MetronomeSettings{BPM: &slow})
	assert.True(t, errors.Is(err, common.ErrBadRequest))
	err = service.SetMetronomeSettings(ctx, "uid-1", "Waltz", MetronomeSettings{TimeSignature: &odd})
	assert.True(t, errors.Is(err, common.ErrBadRequest))
	assert.Contains(t, err.Error(), "Invalid time signature")
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileService_DisplayNames(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	ids := []string{"abcdefghij1", "klmnopqrst2", "uvwxyz12343", "missing-user-id"}
	repo.On("GetMany", ctx, ids).Return([]UserProfile{
		{ID: "abcdefghij1", DisplayName: "Miles"},
		{ID: "klmnopqrst2", Email: "trane@example.com"},
		{ID: "uvwxyz12343"},
	}, nil).Once()

	names := service.DisplayNames(ctx, ids)
	assert.Equal(t, map[string]string{
		"abcdefghij1":     "Miles",
		"klmnopqrst2":     "trane",
		"uvwxyz12343":     "uvwxyz12",
		"missing-user-id": "missing-...",
	}, names)
	repo.AssertExpectations(t)
}

func TestProfileService_DisplayNamesLookupError(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)
	ctx := context.Background()
	repo.On("GetMany", ctx, []string{"abcdefghij1"}).Return(nil, errors.New("unavailable")).Once()

	names := service.DisplayNames(ctx, []string{"abcdefghij1"})
	assert.Equal(t, "abcdefgh...", names["abcdefghij1"])
}

func TestProfileService_DisplayNamesEmpty(t *testing.T) {
	service, repo := setupProfileServiceTestSuite(t)

	assert.Empty(t, service.DisplayNames(context.Background(), nil))
	repo.AssertNotCalled(t, "GetMany", mock.Anything, mock.Anything)
}

func TestUserProfile_Preferences(t *testing.T) {
	var missing *UserProfile
	assert.Equal(t, "c", missing.PreferredKey("Blue Bossa", "c"))

	p := &UserProfile{
		PreferredKeys:          map[string]string{"Blue Bossa": "d"},
		PreferredOctaveOffsets: map[string]int{"Blue Bossa": 1},
	}
	assert.Equal(t, "d", p.PreferredKey("Blue Bossa", "c"))
	assert.Equal(t, "g", p.PreferredKey("Autumn Leaves", "g"))
	assert.Equal(t, 1, p.OctaveOffset("Blue Bossa"))
}
