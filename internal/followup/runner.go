package followup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/store"
)

// DefaultBatchSize caps how many leads one sweep processes.
const DefaultBatchSize = 50

// Runner executes follow-up sweeps against the lead store.
type Runner struct {
	store     store.Store
	msg       messaging.Service
	batchSize int
	now       func() time.Time
}

// NewRunner creates a follow-up runner.
func NewRunner(st store.Store, msg messaging.Service) *Runner {
	return &Runner{
		store:     st,
		msg:       msg,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// Report summarizes one sweep.
type Report struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Sweep sends the pending check-in to every due lead. Per-lead failures are
// counted and logged but do not abort the sweep; the error return is reserved
// for failures of the sweep itself.
func (r *Runner) Sweep(ctx context.Context) (Report, error) {
	now := r.now().UTC()
	due, err := r.store.ListLeadsDueForFollowUp(ctx, now, r.batchSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list due leads: %w", err)
	}

	report := Report{Due: len(due)}
	for _, lead := range due {
		if err := r.sendCheckIn(ctx, lead, now); err != nil {
			slog.Error("Followup.Sweep: check-in failed", "phone", lead.Phone, "error", err)
			report.Failed++
			continue
		}
		report.Sent++
	}
	slog.Info("Followup.Sweep: sweep complete",
		"due", report.Due, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

func (r *Runner) sendCheckIn(ctx context.Context, lead models.Lead, now time.Time) error {
	step, ok := NextStep(lead.FollowUpCount)
	if !ok {
		// Exhausted cadence with a schedule still set, e.g. rows from before
		// a cadence change. Clear the schedule; the count is already at the
		// cap so the extra bump is harmless.
		slog.Warn("Followup.sendCheckIn: cadence exhausted, clearing schedule",
			"phone", lead.Phone, "count", lead.FollowUpCount)
		return r.store.IncrementFollowUp(ctx, lead.Phone, lead.FollowUpStage, nil)
	}

	body := Messages[step.Stage]
	if err := r.msg.SendMessage(ctx, lead.Phone, body); err != nil {
		return fmt.Errorf("failed to send check-in: %w", err)
	}
	if err := r.store.AppendHistory(ctx, lead.Phone, models.HistoryLine(now, models.SenderBot, body)); err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}
	if err := r.store.IncrementFollowUp(ctx, lead.Phone, step.Stage, NextTime(lead.FollowUpCount, now)); err != nil {
		return fmt.Errorf("failed to advance follow-up state: %w", err)
	}
	slog.Debug("Followup.sendCheckIn: check-in sent", "phone", lead.Phone, "stage", step.Stage)
	return nil
}
