package setlist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"jazz_picker_backend/internal/common"
	"jazz_picker_backend/internal/platform/firestoreutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSetlistRepository is a mock type for setlist.Repository
type MockSetlistRepository struct {
	mock.Mock
}

func (m *MockSetlistRepository) Get(ctx context.Context, id string) (*Setlist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Setlist), args.Error(1)
}

func (m *MockSetlistRepository) List(ctx context.Context, groupIDs []string) ([]Setlist, error) {
	args := m.Called(ctx, groupIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Setlist), args.Error(1)
}

func (m *MockSetlistRepository) Create(ctx context.Context, name, ownerID, groupID string) (string, error) {
	args := m.Called(ctx, name, ownerID, groupID)
	return args.String(0), args.Error(1)
}

func (m *MockSetlistRepository) Update(ctx context.Context, id string, update SetlistUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockSetlistRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSetlistRepository) Watch(ctx context.Context, groupIDs []string, fn func([]Setlist), onError func(error)) *firestoreutil.Subscription {
	return m.Called(ctx, groupIDs, fn, onError).Get(0).(*firestoreutil.Subscription)
}

func (m *MockSetlistRepository) WatchOne(ctx context.Context, id string, fn func(*Setlist), onError func(error)) *firestoreutil.Subscription {
	return m.Called(ctx, id, fn, onError).Get(0).(*firestoreutil.Subscription)
}

func setupSetlistServiceTestSuite(t *testing.T) (*ServiceImplementation, *MockSetlistRepository) {
	t.Helper()
	repo := new(MockSetlistRepository)
	service := NewService(repo, zap.NewNop())
	next := 0
	service.newID = func() string {
		next++
		return fmt.Sprintf("item-%d", next)
	}
	return service, repo
}

func strPtr(s string) *string { return &s }

func sampleSetlist() *Setlist {
	return &Setlist{
		ID:      "s1",
		Name:    "Friday Gig",
		OwnerID: "u1",
		GroupID: "g1",
		Items: []Item{
			{ID: "a", SongTitle: "Autumn Leaves", ConcertKey: strPtr("g"), Position: 0},
			{ID: "b", IsSetBreak: true, Position: 1},
			{ID: "c", SongTitle: "Blue Bossa", Position: 2, Notes: strPtr("bossa feel")},
		},
	}
}

// itemsArePositioned fails unless update carries items whose positions match their indices.
func itemsArePositioned(ids ...string) interface{} {
	return mock.MatchedBy(func(u SetlistUpdate) bool {
		if u.Name != nil || len(u.Items) != len(ids) {
			return false
		}
		for i, item := range u.Items {
			if item.ID != ids[i] || item.Position != i {
				return false
			}
		}
		return true
	})
}

func TestSetlist_SongCountSkipsBreaks(t *testing.T) {
	assert.Equal(t, 2, sampleSetlist().SongCount())
}

func TestSetlistService_SubscribeEmptyGroups(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	var got []Setlist
	calls := 0

	sub := service.Subscribe(context.Background(), []string{}, func(s []Setlist) {
		calls++
		got = s
	}, nil)
	sub.Stop()

	assert.Equal(t, 1, calls)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	repo.AssertNotCalled(t, "Watch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetlistService_SubscribeLimitsGroups(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("g%d", i)
	}
	repo.On("Watch", ctx, ids[:firestoreutil.MaxInFilter], mock.Anything, mock.Anything).Return(firestoreutil.Noop()).Once()
	repo.On("Watch", ctx, []string(nil), mock.Anything, mock.Anything).Return(firestoreutil.Noop()).Once()

	service.Subscribe(ctx, ids, func([]Setlist) {}, nil).Stop()
	service.Subscribe(ctx, nil, func([]Setlist) {}, nil).Stop()
	repo.AssertExpectations(t)
}

func TestSetlistService_CreateRequiresName(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)

	_, err := service.Create(context.Background(), "  ", "u1", "g1")
	assert.True(t, errors.Is(err, common.ErrBadRequest))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetlistService_AddItem(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "s1").Return(sampleSetlist(), nil).Once()
	repo.On("Update", ctx, "s1", itemsArePositioned("a", "b", "c", "item-1")).Return(nil).Once()

	item, err := service.AddItem(ctx, "s1", AddItemInput{SongTitle: "Blue Monk", ConcertKey: strPtr("bf")})
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, 3, item.Position)
	assert.Equal(t, "bf", *item.ConcertKey)
	assert.Nil(t, item.Notes)
	repo.AssertExpectations(t)
}

func TestSetlistService_AddItemMissingSetlist(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "nope").Return(nil, nil).Once()

	_, err := service.AddItem(ctx, "nope", AddItemInput{SongTitle: "Blue Monk"})
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Equal(t, "Setlist not found", err.Error())
}

func TestSetlistService_AddSetBreak(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "s1").Return(sampleSetlist(), nil).Once()
	repo.On("Update", ctx, "s1", itemsArePositioned("a", "b", "c", "item-1")).Return(nil).Once()

	item, err := service.AddSetBreak(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, item.IsSetBreak)
	assert.Empty(t, item.SongTitle)
	assert.Nil(t, item.ConcertKey)
}

func TestSetlistService_RemoveItemReindexes(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "s1").Return(sampleSetlist(), nil).Once()
	repo.On("Update", ctx, "s1", itemsArePositioned("a", "c")).Return(nil).Once()

	require.NoError(t, service.RemoveItem(ctx, "s1", "b"))
	repo.AssertExpectations(t)
}

func TestSetlistService_ReorderItems(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	items := sampleSetlist().Items
	reordered := []Item{items[2], items[0], items[1]}
	repo.On("Update", ctx, "s1", itemsArePositioned("c", "a", "b")).Return(nil).Once()

	require.NoError(t, service.ReorderItems(ctx, "s1", reordered))
	assert.Equal(t, 2, reordered[0].Position, "the caller's slice is not modified")
	repo.AssertExpectations(t)
}

func TestSetlistService_UpdateItem(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "s1").Return(sampleSetlist(), nil).Once()

	var saved SetlistUpdate
	repo.On("Update", ctx, "s1", mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(2).(SetlistUpdate)
	}).Return(nil).Once()

	offset := 1
	require.NoError(t, service.UpdateItem(ctx, "s1", "c", ItemUpdate{
		ConcertKey:   strPtr("af"),
		OctaveOffset: &offset,
		Notes:        strPtr(""),
	}))

	want := sampleSetlist().Items
	want[2].ConcertKey = strPtr("af")
	want[2].OctaveOffset = 1
	want[2].Notes = nil
	if diff := cmp.Diff(want, saved.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestSetlistService_Duplicate(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "s1").Return(sampleSetlist(), nil).Once()
	repo.On("Create", ctx, "Friday Gig (copy)", "u2", "g1").Return("s2", nil).Once()

	var saved SetlistUpdate
	repo.On("Update", ctx, "s2", mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(2).(SetlistUpdate)
	}).Return(nil).Once()

	id, err := service.Duplicate(ctx, "s1", "Friday Gig (copy)", "u2")
	require.NoError(t, err)
	assert.Equal(t, "s2", id)
	require.Len(t, saved.Items, 3)
	for i, item := range saved.Items {
		assert.Equal(t, fmt.Sprintf("item-%d", i+1), item.ID)
		assert.Equal(t, i, item.Position)
	}
	assert.Equal(t, "Autumn Leaves", saved.Items[0].SongTitle)
	assert.True(t, saved.Items[1].IsSetBreak)
}

func TestSetlistService_DuplicateMissingSource(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)
	ctx := context.Background()
	repo.On("Get", ctx, "gone").Return(nil, nil).Once()

	_, err := service.Duplicate(ctx, "gone", "Copy", "u1")
	assert.Equal(t, "Source setlist not found", err.Error())
}

func TestSetlistService_ListEmptyGroups(t *testing.T) {
	service, repo := setupSetlistServiceTestSuite(t)

	got, err := service.List(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, got)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
