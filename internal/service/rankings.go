package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/council-rankings/internal/config"
	"github.com/council-rankings/internal/domain"
)

// Store is the persistent source of events and win records
type Store interface {
	CreateEvent(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	CreateWin(ctx context.Context, win domain.WinRecord) (*domain.WinRecord, error)
	DeleteWin(ctx context.Context, winID string) error
	ListWinRecords(ctx context.Context) ([]domain.WinRecord, error)
	ListWinRecordsByEvent(ctx context.Context, eventID string) ([]domain.WinRecord, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListYears(ctx context.Context) ([]int, error)
}

// RankingCache caches computed ranking lists per filter combination
type RankingCache interface {
	GetRankings(ctx context.Context, opts domain.FilterOptions) ([]domain.StudentRanking, error)
	SetRankings(ctx context.Context, opts domain.FilterOptions, rankings []domain.StudentRanking) error
	Invalidate(ctx context.Context) error
}

// Broadcaster pushes ranking updates to connected clients
type Broadcaster interface {
	BroadcastRankingUpdate(category string, rankings []domain.StudentRanking)
}

// RankingBoard is a ranking list with its presentation layout.
// TotalStudents counts the whole board even when Rankings is truncated
// to a top-N view.
type RankingBoard struct {
	Layout        domain.Layout           `json:"layout"`
	TotalStudents int                     `json:"total_students"`
	Rankings      []domain.StudentRanking `json:"rankings"`
}

// FilterChoices lists the category and year values available to filter on
type FilterChoices struct {
	Categories []string `json:"categories"`
	Years      []int    `json:"years"`
}

// RankingService provides business logic for the council rankings
type RankingService struct {
	store  Store
	cache  RankingCache
	hub    Broadcaster
	config *config.RankingsConfig
	logger *slog.Logger
}

// NewRankingService creates a new ranking service
func NewRankingService(store Store, cache RankingCache, cfg *config.RankingsConfig, logger *slog.Logger) *RankingService {
	return &RankingService{
		store:  store,
		cache:  cache,
		config: cfg,
		logger: logger,
	}
}

// SetHub sets the broadcaster used to push ranking updates
func (s *RankingService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// GetRankings returns the ranking board for the given filters,
// serving from cache when possible. Cache failures degrade to a
// recompute, never to a request failure.
func (s *RankingService) GetRankings(ctx context.Context, opts domain.FilterOptions) (*RankingBoard, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRankings(ctx, opts)
		if err != nil {
			s.logger.Warn("ranking cache read failed", "error", err)
		} else if cached != nil {
			return boardOf(cached), nil
		}
	}

	rankings, err := s.computeRankings(ctx, opts)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRankings(ctx, opts, rankings); err != nil {
			s.logger.Warn("ranking cache write failed", "error", err)
		}
	}

	return boardOf(rankings), nil
}

func boardOf(rankings []domain.StudentRanking) *RankingBoard {
	return &RankingBoard{
		Layout:        domain.LayoutFor(len(rankings)),
		TotalStudents: len(rankings),
		Rankings:      rankings,
	}
}

// GetTopRankings returns the board truncated to its first n entries.
// n <= 0 returns the whole board; n above the configured page cap is
// clamped. Layout and TotalStudents still describe the full board.
func (s *RankingService) GetTopRankings(ctx context.Context, opts domain.FilterOptions, n int) (*RankingBoard, error) {
	board, err := s.GetRankings(ctx, opts)
	if err != nil {
		return nil, err
	}

	if n <= 0 {
		return board, nil
	}
	if s.config != nil && n > s.config.MaxPageSize {
		n = s.config.MaxPageSize
	}
	if n < len(board.Rankings) {
		board.Rankings = board.Rankings[:n]
	}
	return board, nil
}

// GetStudent returns one student's ranking entry, including the wins
// counted under the current filter, for drill-down display.
func (s *RankingService) GetStudent(ctx context.Context, email string, opts domain.FilterOptions) (*domain.StudentRanking, error) {
	board, err := s.GetRankings(ctx, opts)
	if err != nil {
		return nil, err
	}

	student := domain.FindStudent(board.Rankings, email)
	if student == nil {
		return nil, domain.ErrStudentNotFound
	}
	return student, nil
}

// ListFilterChoices returns the category and year values that filter
// controls can offer.
func (s *RankingService) ListFilterChoices(ctx context.Context) (*FilterChoices, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	years, err := s.store.ListYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing years: %w", err)
	}
	return &FilterChoices{Categories: categories, Years: years}, nil
}

// RecordWin records a win for a student. The free-text position label
// is classified into a placement here, at data entry, so reads never
// re-derive it.
func (s *RankingService) RecordWin(ctx context.Context, sub domain.WinSubmission) (*domain.WinRecord, error) {
	if sub.EventID == "" || strings.TrimSpace(sub.WinnerEmail) == "" || sub.Position == "" {
		return nil, domain.ErrInvalidWin
	}

	event, err := s.store.GetEvent(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}

	win := domain.WinRecord{
		EventID:        event.ID,
		WinnerEmail:    sub.WinnerEmail,
		WinnerName:     sub.WinnerName,
		Position:       sub.Position,
		Placement:      domain.ClassifyPosition(sub.Position),
		SubEventName:   sub.SubEventName,
		Prize:          sub.Prize,
		WinnerImageURL: sub.WinnerImageURL,
		EventType:      event.EventType,
		EventYear:      event.Year,
	}

	created, err := s.store.CreateWin(ctx, win)
	if err != nil {
		return nil, fmt.Errorf("recording win: %w", err)
	}

	s.afterWrite(ctx, event.EventType)
	return created, nil
}

// RecordWinBatch records multiple wins, continuing past individual
// failures. Used by the streaming import path.
func (s *RankingService) RecordWinBatch(ctx context.Context, batch domain.BatchWinSubmission) error {
	for _, sub := range batch.Wins {
		if _, err := s.RecordWin(ctx, sub); err != nil {
			s.logger.Error("failed to record win in batch",
				"event_id", sub.EventID,
				"winner_email", sub.WinnerEmail,
				"error", err,
			)
		}
	}
	return nil
}

// DeleteWin removes a win record and refreshes the board
func (s *RankingService) DeleteWin(ctx context.Context, winID string) error {
	if err := s.store.DeleteWin(ctx, winID); err != nil {
		return err
	}
	s.afterWrite(ctx, "")
	return nil
}

// CreateEvent creates a new event
func (s *RankingService) CreateEvent(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error) {
	if req.Name == "" || req.EventType == "" || req.Year == 0 {
		return nil, domain.ErrInvalidEvent
	}
	return s.store.CreateEvent(ctx, req)
}

// GetEvent returns an event by ID
func (s *RankingService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

// ListEvents returns all events
func (s *RankingService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.store.ListEvents(ctx)
}

// DeleteEvent removes an event and its winner records
func (s *RankingService) DeleteEvent(ctx context.Context, eventID string) error {
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	s.afterWrite(ctx, "")
	return nil
}

// ListEventWins returns the win records for one event
func (s *RankingService) ListEventWins(ctx context.Context, eventID string) ([]domain.WinRecord, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListWinRecordsByEvent(ctx, eventID)
}

// RefreshCache recomputes and caches the unfiltered board. Used by the
// refresh worker to keep the hot key warm across TTL expiry.
func (s *RankingService) RefreshCache(ctx context.Context) error {
	rankings, err := s.computeRankings(ctx, domain.FilterOptions{})
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.SetRankings(ctx, domain.FilterOptions{}, rankings)
}

// computeRankings rebuilds a ranking list from the full win record set
func (s *RankingService) computeRankings(ctx context.Context, opts domain.FilterOptions) ([]domain.StudentRanking, error) {
	records, err := s.store.ListWinRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing win records: %w", err)
	}
	return domain.Rank(records, opts), nil
}

// afterWrite invalidates the cache and pushes fresh boards to
// subscribers. Failures here are logged, not returned; the write
// itself already succeeded.
func (s *RankingService) afterWrite(ctx context.Context, category string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate ranking cache", "error", err)
		}
	}

	if s.hub == nil {
		return
	}

	records, err := s.store.ListWinRecords(ctx)
	if err != nil {
		s.logger.Warn("failed to recompute rankings for broadcast", "error", err)
		return
	}

	s.hub.BroadcastRankingUpdate(domain.FilterAll, domain.Aggregate(records))
	if category != "" && category != domain.FilterAll {
		s.hub.BroadcastRankingUpdate(category,
			domain.Rank(records, domain.FilterOptions{Category: category}))
	}
}
