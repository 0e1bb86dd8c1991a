package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "embed"

	"github.com/CornerstoneRE/LeadLine/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path; missing
// parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to create directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: migrations failed", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = ?`, phone)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetLeadByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get lead %s: %w", phone, err)
	}
	return &lead, nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead models.Lead) error {
	now := time.Now().UTC()
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO leads (phone, name, email, move_in_date, price, beds, baths, location, amenities,
			rental_urgency, boston_rental_experience, tour_availability, tour_ready,
			follow_up_count, follow_up_stage, chat_history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.Phone, nilIfEmpty(lead.Name), nilIfEmpty(lead.Email),
		nilIfEmpty(lead.MoveInDate), nilIfEmpty(lead.Price), nilIfEmpty(lead.Beds),
		nilIfEmpty(lead.Baths), nilIfEmpty(lead.Location), nilIfEmpty(lead.Amenities),
		nilIfEmpty(lead.RentalUrgency), nilIfEmpty(lead.BostonRentalExperience),
		nilIfEmpty(lead.TourAvailability), lead.TourReady,
		lead.FollowUpCount, string(stageOrDefault(lead.FollowUpStage)), lead.ChatHistory,
		createdAt, now,
	)
	if err != nil {
		slog.Error("SQLiteStore.CreateLead failed", "error", err, "phone", lead.Phone)
		return fmt.Errorf("failed to create lead %s: %w", lead.Phone, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create lead %s: %w", lead.Phone, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrLeadExists, lead.Phone)
	}
	slog.Debug("SQLiteStore.CreateLead succeeded", "phone", lead.Phone)
	return nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, phone string, fields map[string]string) error {
	if err := validateUpdateFields(fields); err != nil {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, 0, len(names)+1)
	var args []interface{}
	for _, name := range names {
		assignments = append(assignments, name+" = ?")
		args = append(args, nilIfEmpty(fields[name]))
	}
	assignments = append(assignments, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, phone)

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET `+strings.Join(assignments, ", ")+` WHERE phone = ?`, args...)
	if err != nil {
		slog.Error("SQLiteStore.UpdateLead failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to update lead %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, phone string, line string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			chat_history = CASE WHEN chat_history = '' THEN ? ELSE chat_history || char(10) || ? END,
			updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?`, line, line, phone)
	if err != nil {
		slog.Error("SQLiteStore.AppendHistory failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to append history for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) MarkContacted(ctx context.Context, phone string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET last_contacted = ?, updated_at = CURRENT_TIMESTAMP WHERE phone = ?`,
		at.UTC(), phone)
	if err != nil {
		slog.Error("SQLiteStore.MarkContacted failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to mark contact for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) ScheduleFollowUp(ctx context.Context, phone string, at time.Time, stage models.FollowUpStage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET next_follow_up_time = ?, follow_up_stage = ?, updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?`, at.UTC(), string(stage), phone)
	if err != nil {
		slog.Error("SQLiteStore.ScheduleFollowUp failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to schedule follow-up for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) PauseFollowUpsUntil(ctx context.Context, phone string, until time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET follow_up_paused_until = ?, updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?`, until.UTC(), phone)
	if err != nil {
		slog.Error("SQLiteStore.PauseFollowUpsUntil failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to pause follow-ups for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) SetTourReady(ctx context.Context, phone string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET tour_ready = 1, next_follow_up_time = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?`, phone)
	if err != nil {
		slog.Error("SQLiteStore.SetTourReady failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to set tour ready for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) IncrementFollowUp(ctx context.Context, phone string, stage models.FollowUpStage, next *time.Time) error {
	var nextVal interface{}
	if next != nil {
		nextVal = next.UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			follow_up_count = follow_up_count + 1,
			follow_up_stage = ?,
			next_follow_up_time = ?,
			last_contacted = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE phone = ?`, string(stage), nextVal, phone)
	if err != nil {
		slog.Error("SQLiteStore.IncrementFollowUp failed", "error", err, "phone", phone)
		return fmt.Errorf("failed to increment follow-up for %s: %w", phone, err)
	}
	return requireRow(res, phone)
}

func (s *SQLiteStore) ListLeadsDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE tour_ready = 0
		  AND next_follow_up_time IS NOT NULL
		  AND next_follow_up_time <= ?
		  AND (follow_up_paused_until IS NULL OR follow_up_paused_until <= ?)
		ORDER BY next_follow_up_time ASC
		LIMIT ?`, now.UTC(), now.UTC(), limit)
	if err != nil {
		slog.Error("SQLiteStore.ListLeadsDueForFollowUp query failed", "error", err)
		return nil, fmt.Errorf("failed to query due leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			slog.Error("SQLiteStore.ListLeadsDueForFollowUp scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	slog.Debug("SQLiteStore.ListLeadsDueForFollowUp succeeded", "count", len(leads))
	return leads, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
