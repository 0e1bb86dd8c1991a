// Package store provides storage backends for LeadLine.
//
// Leads are keyed by E.164 phone number. Postgres and SQLite backends share
// the same schema; the in-memory store exists for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// Store errors.
var (
	// ErrLeadNotFound indicates an update targeted a phone number with no
	// lead row.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrLeadExists indicates a create targeted a phone number that already
	// has a lead row.
	ErrLeadExists = errors.New("lead already exists")
)

// Store defines persistence operations for leads.
type Store interface {
	// GetLeadByPhone returns the lead for a phone number, or (nil, nil) when
	// no lead exists.
	GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error)

	// CreateLead inserts a new lead. Returns ErrLeadExists when the phone
	// number is already present.
	CreateLead(ctx context.Context, lead models.Lead) error

	// UpdateLead sets the given qualification/contact fields on a lead.
	// Field names are the canonical models.Field* constants; unknown names
	// are rejected. Returns ErrLeadNotFound when the lead does not exist.
	UpdateLead(ctx context.Context, phone string, fields map[string]string) error

	// AppendHistory appends one formatted line to the lead's chat history.
	AppendHistory(ctx context.Context, phone string, line string) error

	// MarkContacted records an outbound message time.
	MarkContacted(ctx context.Context, phone string, at time.Time) error

	// ScheduleFollowUp sets the next follow-up time and stage.
	ScheduleFollowUp(ctx context.Context, phone string, at time.Time, stage models.FollowUpStage) error

	// PauseFollowUpsUntil suppresses follow-ups for the lead until the given
	// time.
	PauseFollowUpsUntil(ctx context.Context, phone string, until time.Time) error

	// SetTourReady marks the lead tour-ready and clears any pending
	// follow-up.
	SetTourReady(ctx context.Context, phone string) error

	// IncrementFollowUp bumps the follow-up counter after a check-in was
	// sent, records the stage, and sets the next follow-up time (nil for no
	// further follow-ups).
	IncrementFollowUp(ctx context.Context, phone string, stage models.FollowUpStage, next *time.Time) error

	// ListLeadsDueForFollowUp returns up to limit leads whose next follow-up
	// time has passed, excluding tour-ready and paused leads.
	ListLeadsDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]models.Lead, error)

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string (Postgres DSN or SQLite file
// path).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}
