package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "embed"

	"github.com/CornerstoneRE/LeadLine/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore.NewPostgresStore: failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore.NewPostgresStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = $1`, phone)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetLeadByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get lead %s: %w", phone, err)
	}
	return &lead, nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead models.Lead) error {
	now := time.Now().UTC()
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (phone, name, email, move_in_date, price, beds, baths, location, amenities,
			rental_urgency, boston_rental_experience, tour_availability, tour_ready,
			follow_up_count, follow_up_stage, chat_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (phone) DO NOTHING`,
		lead.Phone, nilIfEmpty(lead.Name), nilIfEmpty(lead.Email),
		nilIfEmpty(lead.MoveInDate), nilIfEmpty(lead.Price), nilIfEmpty(lead.Beds),
		nilIfEmpty(lead.Baths), nilIfEmpty(lead.Location), nilIfEmpty(lead.Amenities),
		nilIfEmpty(lead.RentalUrgency), nilIfEmpty(lead.BostonRentalExperience),
		nilIfEmpty(lead.TourAvailability), lead.TourReady,
		lead.FollowUpCount, string(stageOrDefault(lead.FollowUpStage)), lead.ChatHistory,
		createdAt, now,
	)
	if err != nil {
		slog.Error("PostgresStore.CreateLead failed", "error", err, "phone", lead.Phone)
		return fmt.Errorf("failed to create lead %s: %w", lead.Phone, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create lead %s: %w", lead.Phone, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLeadExists, lead.Phone)
	}
	slog.Debug("PostgresStore.CreateLead succeeded", "phone", lead.Phone)
	return nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, phone string, fields map[string]string) error {
	if err := validateUpdateFields(fields); err != nil {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names)+1)
	args := []interface{}{phone}
	for i, name := range names {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", name, i+2))
		args = append(args, nilIfEmpty(fields[name]))
	}
	assignments = append(assignments, "updated_at = NOW()")

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET `+strings.Join(assignments, ", ")+` WHERE phone = $1`, args...)
	if err != nil {
		slog.Error("PostgresStore.UpdateLead failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to update lead %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) AppendHistory(ctx context.Context, phone string, line string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			chat_history = CASE WHEN chat_history = '' THEN $2 ELSE chat_history || chr(10) || $2 END,
			updated_at = NOW()
		WHERE phone = $1`, phone, line)
	if err != nil {
		slog.Error("PostgresStore.AppendHistory failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to append history for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) MarkContacted(ctx context.Context, phone string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET last_contacted = $2, updated_at = NOW() WHERE phone = $1`, phone, at.UTC())
	if err != nil {
		slog.Error("PostgresStore.MarkContacted failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to mark contact for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) ScheduleFollowUp(ctx context.Context, phone string, at time.Time, stage models.FollowUpStage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET next_follow_up_time = $2, follow_up_stage = $3, updated_at = NOW()
		WHERE phone = $1`, phone, at.UTC(), string(stage))
	if err != nil {
		slog.Error("PostgresStore.ScheduleFollowUp failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to schedule follow-up for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) PauseFollowUpsUntil(ctx context.Context, phone string, until time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET follow_up_paused_until = $2, updated_at = NOW()
		WHERE phone = $1`, phone, until.UTC())
	if err != nil {
		slog.Error("PostgresStore.PauseFollowUpsUntil failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to pause follow-ups for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) SetTourReady(ctx context.Context, phone string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET tour_ready = TRUE, next_follow_up_time = NULL, updated_at = NOW()
		WHERE phone = $1`, phone)
	if err != nil {
		slog.Error("PostgresStore.SetTourReady failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to set tour ready for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) IncrementFollowUp(ctx context.Context, phone string, stage models.FollowUpStage, next *time.Time) error {
	var nextVal interface{}
	if next != nil {
		nextVal = next.UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			follow_up_count = follow_up_count + 1,
			follow_up_stage = $2,
			next_follow_up_time = $3,
			last_contacted = NOW(),
			updated_at = NOW()
		WHERE phone = $1`, phone, string(stage), nextVal)
	if err != nil {
		slog.Error("PostgresStore.IncrementFollowUp failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to increment follow-up for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *PostgresStore) ListLeadsDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE tour_ready = FALSE
		  AND next_follow_up_time IS NOT NULL
		  AND next_follow_up_time <= $1
		  AND (follow_up_paused_until IS NULL OR follow_up_paused_until <= $1)
		ORDER BY next_follow_up_time ASC
		LIMIT $2`, now.UTC(), limit)
	if err != nil {
		slog.Error("PostgresStore.ListLeadsDueForFollowUp query failed", "error", err)
		return nil, fmt.Errorf("failed to query due leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("PostgresStore.ListLeadsDueForFollowUp scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("PostgresStore.ListLeadsDueForFollowUp succeeded", "count", len(leads))
	return leads, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// requireRow converts a zero-row update into ErrLeadNotFound.
func requireRow(res sql.Result, phone string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for %s: %w", phone, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	return nil
}

// stageOrDefault backfills the initial stage for zero-valued leads.
func stageOrDefault(stage models.FollowUpStage) models.FollowUpStage {
	if stage == "" {
		return models.FollowUpStageScheduled
	}
	return stage
}
