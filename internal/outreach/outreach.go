// Package outreach starts conversations with brand-new leads.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/conversation"
	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/reply"
	"github.com/CornerstoneRE/LeadLine/internal/store"
)

// ErrDuplicateLead indicates outreach was requested for a phone number that
// already has a conversation.
var ErrDuplicateLead = errors.New("lead already exists")

// Handler triggers first contact for new leads.
type Handler struct {
	store   store.Store
	msg     messaging.Service
	replies *reply.Renderer
	now     func() time.Time
}

// NewHandler creates an outreach handler.
func NewHandler(st store.Store, msg messaging.Service, rr *reply.Renderer) *Handler {
	return &Handler{store: st, msg: msg, replies: rr, now: time.Now}
}

// Trigger creates the lead and sends the opening message. The phone number
// is canonicalized to E.164 before anything else; the name is reduced to a
// presentable first name.
func (h *Handler) Trigger(ctx context.Context, phone, name string) (*models.Lead, error) {
	canonical, err := h.msg.ValidateAndCanonicalizeRecipient(phone)
	if err != nil {
		return nil, err
	}

	existing, err := h.store.GetLeadByPhone(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing lead %s: %w", canonical, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLead, canonical)
	}

	lead, err := models.NewLead(canonical)
	if err != nil {
		return nil, err
	}
	lead.Name = FirstName(name)
	if err := h.store.CreateLead(ctx, lead); err != nil {
		if errors.Is(err, store.ErrLeadExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLead, canonical)
		}
		return nil, fmt.Errorf("failed to create lead %s: %w", canonical, err)
	}

	now := h.now().UTC()
	body := h.replies.Render(ctx, conversation.InitialOutreach{LeadName: lead.Name}, lead)
	if err := h.msg.SendMessage(ctx, canonical, body); err != nil {
		return nil, fmt.Errorf("failed to send opening message to %s: %w", canonical, err)
	}
	if err := h.store.AppendHistory(ctx, canonical, models.HistoryLine(now, models.SenderBot, body)); err != nil {
		slog.Error("Outreach.Trigger: failed to record opening message", "phone", canonical, "error", err)
	}
	if err := h.store.MarkContacted(ctx, canonical, now); err != nil {
		slog.Error("Outreach.Trigger: failed to mark contact", "phone", canonical, "error", err)
	}
	if err := h.store.ScheduleFollowUp(ctx, canonical, now.AddDate(0, 0, 1), models.FollowUpStageScheduled); err != nil {
		slog.Error("Outreach.Trigger: failed to schedule follow-up", "phone", canonical, "error", err)
	}

	slog.Info("Outreach.Trigger: outreach sent", "phone", canonical, "name", lead.Name)
	created, err := h.store.GetLeadByPhone(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to reload lead %s: %w", canonical, err)
	}
	return created, nil
}

// FirstName reduces a full name to its first token, stripped to letters,
// hyphens and apostrophes, with the first letter capitalized. Unusable input
// yields the empty string.
func FirstName(full string) string {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range fields[0] {
		if isNameRune(r) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}
	lower := strings.ToLower(cleaned)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == '-' || r == '\'':
		return true
	default:
		return false
	}
}
