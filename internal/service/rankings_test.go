package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/council-rankings/internal/config"
	"github.com/council-rankings/internal/domain"
)

type fakeStore struct {
	events  []domain.Event
	wins    []domain.WinRecord
	listErr error
}

func (s *fakeStore) CreateEvent(_ context.Context, req domain.CreateEventRequest) (*domain.Event, error) {
	event := domain.Event{
		ID:        uuid.New().String(),
		Name:      req.Name,
		EventType: req.EventType,
		Year:      req.Year,
		CreatedAt: time.Now(),
	}
	s.events = append(s.events, event)
	return &event, nil
}

func (s *fakeStore) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	for i := range s.events {
		if s.events[i].ID == eventID {
			return &s.events[i], nil
		}
	}
	return nil, domain.ErrEventNotFound
}

func (s *fakeStore) ListEvents(context.Context) ([]domain.Event, error) {
	return s.events, nil
}

func (s *fakeStore) DeleteEvent(_ context.Context, eventID string) error {
	for i := range s.events {
		if s.events[i].ID == eventID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return domain.ErrEventNotFound
}

func (s *fakeStore) CreateWin(_ context.Context, win domain.WinRecord) (*domain.WinRecord, error) {
	if win.ID == "" {
		win.ID = uuid.New().String()
	}
	s.wins = append(s.wins, win)
	return &win, nil
}

func (s *fakeStore) DeleteWin(_ context.Context, winID string) error {
	for i := range s.wins {
		if s.wins[i].ID == winID {
			s.wins = append(s.wins[:i], s.wins[i+1:]...)
			return nil
		}
	}
	return domain.ErrWinNotFound
}

func (s *fakeStore) ListWinRecords(context.Context) ([]domain.WinRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.wins, nil
}

func (s *fakeStore) ListWinRecordsByEvent(_ context.Context, eventID string) ([]domain.WinRecord, error) {
	var out []domain.WinRecord
	for _, w := range s.wins {
		if w.EventID == eventID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *fakeStore) ListCategories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, e := range s.events {
		if !seen[e.EventType] {
			seen[e.EventType] = true
			out = append(out, e.EventType)
		}
	}
	return out, nil
}

func (s *fakeStore) ListYears(context.Context) ([]int, error) {
	seen := map[int]bool{}
	var out []int
	for _, e := range s.events {
		if !seen[e.Year] {
			seen[e.Year] = true
			out = append(out, e.Year)
		}
	}
	return out, nil
}

type fakeCache struct {
	entries     map[string][]domain.StudentRanking
	invalidated int
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]domain.StudentRanking)}
}

func cacheKey(opts domain.FilterOptions) string {
	return opts.Category + ":" + opts.Year
}

func (c *fakeCache) GetRankings(_ context.Context, opts domain.FilterOptions) ([]domain.StudentRanking, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[cacheKey(opts)], nil
}

func (c *fakeCache) SetRankings(_ context.Context, opts domain.FilterOptions, rankings []domain.StudentRanking) error {
	c.entries[cacheKey(opts)] = rankings
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.entries = make(map[string][]domain.StudentRanking)
	c.invalidated++
	return nil
}

type fakeHub struct {
	broadcasts map[string]int
}

func (h *fakeHub) BroadcastRankingUpdate(category string, _ []domain.StudentRanking) {
	if h.broadcasts == nil {
		h.broadcasts = make(map[string]int)
	}
	h.broadcasts[category]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*RankingService, *fakeStore, *fakeCache, *fakeHub) {
	t.Helper()
	store := &fakeStore{}
	cache := newFakeCache()
	hub := &fakeHub{}
	svc := NewRankingService(store, cache, &config.RankingsConfig{MaxPageSize: 100}, testLogger())
	svc.SetHub(hub)
	return svc, store, cache, hub
}

func seedEvent(t *testing.T, svc *RankingService, name, eventType string, year int) *domain.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), domain.CreateEventRequest{
		Name: name, EventType: eventType, Year: year,
	})
	require.NoError(t, err)
	return event
}

func TestRecordWinClassifiesPlacement(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Annual Fest", "Cultural", 2024)

	win, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID:     event.ID,
		WinnerEmail: "a@college.edu",
		WinnerName:  "Alice",
		Position:    "Runner Up",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PlacementSecond, win.Placement)
	assert.Equal(t, "Cultural", win.EventType)
	assert.Equal(t, 2024, win.EventYear)
	require.Len(t, store.wins, 1)
}

func TestRecordWinValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordWin(ctx, domain.WinSubmission{WinnerEmail: "a@x", Position: "1st"})
	assert.ErrorIs(t, err, domain.ErrInvalidWin)

	_, err = svc.RecordWin(ctx, domain.WinSubmission{EventID: "e", Position: "1st"})
	assert.ErrorIs(t, err, domain.ErrInvalidWin)

	_, err = svc.RecordWin(ctx, domain.WinSubmission{EventID: "missing", WinnerEmail: "a@x", Position: "1st"})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestRecordWinInvalidatesCacheAndBroadcasts(t *testing.T) {
	svc, _, cache, hub := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Sports Day", "Sports", 2024)

	// Prime the cache
	_, err := svc.GetRankings(ctx, domain.FilterOptions{})
	require.NoError(t, err)

	_, err = svc.RecordWin(ctx, domain.WinSubmission{
		EventID:     event.ID,
		WinnerEmail: "a@college.edu",
		Position:    "1st Place",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, cache.invalidated)
	assert.Equal(t, 1, hub.broadcasts[domain.FilterAll])
	assert.Equal(t, 1, hub.broadcasts["Sports"])
}

func TestGetRankingsServesFromCache(t *testing.T) {
	svc, store, cache, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Tech Week", "Technical", 2024)

	_, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID: event.ID, WinnerEmail: "a@x", Position: "1st",
	})
	require.NoError(t, err)

	board, err := svc.GetRankings(ctx, domain.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, board.Rankings, 1)
	assert.Equal(t, domain.LayoutSingle, board.Layout)

	// A store failure is masked while the cache holds the board
	store.listErr = errors.New("db down")
	board, err = svc.GetRankings(ctx, domain.FilterOptions{})
	require.NoError(t, err)
	assert.Len(t, board.Rankings, 1)

	// After invalidation the store error surfaces
	require.NoError(t, cache.Invalidate(ctx))
	_, err = svc.GetRankings(ctx, domain.FilterOptions{})
	assert.Error(t, err)
}

func TestGetRankingsDegradesOnCacheError(t *testing.T) {
	svc, _, cache, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Fest", "Cultural", 2024)
	_, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID: event.ID, WinnerEmail: "a@x", Position: "winner",
	})
	require.NoError(t, err)

	cache.getErr = errors.New("redis down")
	board, err := svc.GetRankings(ctx, domain.FilterOptions{})
	require.NoError(t, err)
	assert.Len(t, board.Rankings, 1)
}

func TestGetRankingsFiltered(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sports := seedEvent(t, svc, "Sports Day", "Sports", 2024)
	cultural := seedEvent(t, svc, "Fest", "Cultural", 2023)

	for _, sub := range []domain.WinSubmission{
		{EventID: sports.ID, WinnerEmail: "a@x", Position: "1st Place"},
		{EventID: sports.ID, WinnerEmail: "b@x", Position: "2nd Place"},
		{EventID: cultural.ID, WinnerEmail: "a@x", Position: "3rd Place"},
	} {
		_, err := svc.RecordWin(ctx, sub)
		require.NoError(t, err)
	}

	board, err := svc.GetRankings(ctx, domain.FilterOptions{Category: "Cultural"})
	require.NoError(t, err)
	require.Len(t, board.Rankings, 1)
	assert.Equal(t, "a@x", board.Rankings[0].Email)
	assert.Equal(t, 50, board.Rankings[0].TotalPoints)
	assert.Equal(t, domain.LayoutSingle, board.Layout)
}

func TestGetStudent(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Sports Day", "Sports", 2024)
	_, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID: event.ID, WinnerEmail: "a@x", WinnerName: "Alice", Position: "1st",
	})
	require.NoError(t, err)

	student, err := svc.GetStudent(ctx, "a@x", domain.FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, student.Rank)
	assert.Len(t, student.Wins, 1)

	_, err = svc.GetStudent(ctx, "missing@x", domain.FilterOptions{})
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestDeleteWinRefreshesBoard(t *testing.T) {
	svc, store, cache, hub := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Sports Day", "Sports", 2024)
	win, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID: event.ID, WinnerEmail: "a@x", Position: "1st",
	})
	require.NoError(t, err)

	invalidations := cache.invalidated
	require.NoError(t, svc.DeleteWin(ctx, win.ID))
	assert.Empty(t, store.wins)
	assert.Equal(t, invalidations+1, cache.invalidated)
	assert.GreaterOrEqual(t, hub.broadcasts[domain.FilterAll], 2)

	assert.ErrorIs(t, svc.DeleteWin(ctx, "missing"), domain.ErrWinNotFound)
}

func TestRecordWinBatchContinuesPastFailures(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Quiz Night", "Technical", 2024)

	err := svc.RecordWinBatch(ctx, domain.BatchWinSubmission{Wins: []domain.WinSubmission{
		{EventID: event.ID, WinnerEmail: "a@x", Position: "1st"},
		{EventID: "missing", WinnerEmail: "b@x", Position: "2nd"},
		{EventID: event.ID, WinnerEmail: "c@x", Position: "3rd"},
	}})
	require.NoError(t, err)
	assert.Len(t, store.wins, 2)
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, domain.CreateEventRequest{Name: "X", EventType: "Sports"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = svc.CreateEvent(ctx, domain.CreateEventRequest{Name: "X", Year: 2024})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestListFilterChoices(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	seedEvent(t, svc, "Sports Day", "Sports", 2024)
	seedEvent(t, svc, "Fest", "Cultural", 2023)

	choices, err := svc.ListFilterChoices(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Sports", "Cultural"}, choices.Categories)
	assert.ElementsMatch(t, []int{2024, 2023}, choices.Years)
}

func TestRefreshCacheWarmsGlobalBoard(t *testing.T) {
	svc, _, cache, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Sports Day", "Sports", 2024)
	_, err := svc.RecordWin(ctx, domain.WinSubmission{
		EventID: event.ID, WinnerEmail: "a@x", Position: "1st",
	})
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	require.NoError(t, svc.RefreshCache(ctx))
	cached, err := cache.GetRankings(ctx, domain.FilterOptions{})
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestGetTopRankingsClampsLimit(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	event := seedEvent(t, svc, "Sports Day", "Sports", 2024)

	for _, email := range []string{"a@x", "b@x", "c@x"} {
		_, err := svc.RecordWin(ctx, domain.WinSubmission{
			EventID: event.ID, WinnerEmail: email, Position: "Finalist",
		})
		require.NoError(t, err)
	}

	board, err := svc.GetTopRankings(ctx, domain.FilterOptions{}, 2)
	require.NoError(t, err)
	assert.Len(t, board.Rankings, 2)
	assert.Equal(t, 3, board.TotalStudents)
	assert.Equal(t, domain.LayoutPodium, board.Layout)

	// Zero means the whole board
	board, err = svc.GetTopRankings(ctx, domain.FilterOptions{}, 0)
	require.NoError(t, err)
	assert.Len(t, board.Rankings, 3)

	// Requests above the page cap are clamped, not rejected
	board, err = svc.GetTopRankings(ctx, domain.FilterOptions{}, 10000)
	require.NoError(t, err)
	assert.Len(t, board.Rankings, 3)
}
