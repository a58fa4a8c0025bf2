package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/council-rankings/internal/config"
	"github.com/council-rankings/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			year INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS winners (
			id UUID PRIMARY KEY,
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			winner_email VARCHAR(255) NOT NULL,
			winner_name VARCHAR(255),
			position VARCHAR(64) NOT NULL,
			placement VARCHAR(10) NOT NULL,
			sub_event_name VARCHAR(255),
			prize VARCHAR(255),
			winner_image_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_winners_event ON winners(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_winners_email ON winners(winner_email)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_year ON events(event_type, year)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CreateEvent creates a new event and returns it
func (r *Repository) CreateEvent(ctx context.Context, req domain.CreateEventRequest) (*domain.Event, error) {
	event := domain.Event{
		ID:        uuid.New().String(),
		Name:      req.Name,
		EventType: req.EventType,
		Year:      req.Year,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO events (id, name, event_type, year, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID, event.Name, event.EventType, event.Year, event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return &event, nil
}

// GetEvent retrieves an event by ID
func (r *Repository) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `
		SELECT id, name, event_type, year, created_at
		FROM events
		WHERE id = $1
	`
	var event domain.Event
	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&event.ID, &event.Name, &event.EventType, &event.Year, &event.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("getting event: %w", err)
	}
	return &event, nil
}

// ListEvents retrieves all events, newest first
func (r *Repository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	query := `
		SELECT id, name, event_type, year, created_at
		FROM events
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		err := rows.Scan(&event.ID, &event.Name, &event.EventType, &event.Year, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// DeleteEvent removes an event and all its winner records
func (r *Repository) DeleteEvent(ctx context.Context, eventID string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// CreateWin records a win for a student. The placement must already be
// classified by the caller.
func (r *Repository) CreateWin(ctx context.Context, win domain.WinRecord) (*domain.WinRecord, error) {
	if win.ID == "" {
		win.ID = uuid.New().String()
	}
	if win.CreatedAt.IsZero() {
		win.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO winners (id, event_id, winner_email, winner_name, position,
			placement, sub_event_name, prize, winner_image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		win.ID, win.EventID, win.WinnerEmail, nullable(win.WinnerName),
		win.Position, string(win.Placement), nullable(win.SubEventName),
		nullable(win.Prize), nullable(win.WinnerImageURL), win.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating win record: %w", err)
	}
	return &win, nil
}

// DeleteWin removes a single win record
func (r *Repository) DeleteWin(ctx context.Context, winID string) error {
	query := `DELETE FROM winners WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, winID)
	if err != nil {
		return fmt.Errorf("deleting win record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWinNotFound
	}
	return nil
}

const winRecordColumns = `
	w.id, w.event_id, w.winner_email, COALESCE(w.winner_name, ''), w.position,
	w.placement, COALESCE(w.sub_event_name, ''), COALESCE(w.prize, ''),
	COALESCE(w.winner_image_url, ''), e.event_type, e.year, w.created_at
`

// ListWinRecords retrieves all win records joined with their parent
// event metadata, in insertion order. This is the aggregator's input.
func (r *Repository) ListWinRecords(ctx context.Context) ([]domain.WinRecord, error) {
	query := `
		SELECT ` + winRecordColumns + `
		FROM winners w
		JOIN events e ON e.id = w.event_id
		ORDER BY w.created_at, w.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing win records: %w", err)
	}
	defer rows.Close()

	return scanWinRecords(rows)
}

// ListWinRecordsByEvent retrieves the win records for one event
func (r *Repository) ListWinRecordsByEvent(ctx context.Context, eventID string) ([]domain.WinRecord, error) {
	query := `
		SELECT ` + winRecordColumns + `
		FROM winners w
		JOIN events e ON e.id = w.event_id
		WHERE w.event_id = $1
		ORDER BY w.created_at, w.id
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing win records by event: %w", err)
	}
	defer rows.Close()

	return scanWinRecords(rows)
}

func scanWinRecords(rows pgx.Rows) ([]domain.WinRecord, error) {
	var records []domain.WinRecord
	for rows.Next() {
		var rec domain.WinRecord
		var placement string
		err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.WinnerEmail, &rec.WinnerName,
			&rec.Position, &placement, &rec.SubEventName, &rec.Prize,
			&rec.WinnerImageURL, &rec.EventType, &rec.EventYear, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning win record: %w", err)
		}
		rec.Placement = domain.Placement(placement)
		records = append(records, rec)
	}
	return records, nil
}

// ListCategories returns the distinct event types with recorded winners
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT event_type FROM events ORDER BY event_type`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// ListYears returns the distinct event years, newest first
func (r *Repository) ListYears(ctx context.Context) ([]int, error) {
	query := `SELECT DISTINCT year FROM events ORDER BY year DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scanning year: %w", err)
		}
		years = append(years, y)
	}
	return years, nil
}

// nullable maps empty strings to NULL so optional display fields stay
// NULL in storage rather than empty strings.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
