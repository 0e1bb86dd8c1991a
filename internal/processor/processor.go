// Package processor orchestrates inbound message handling: extraction,
// decision, persistence and the outbound reply.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/conversation"
	"github.com/CornerstoneRE/LeadLine/internal/delay"
	"github.com/CornerstoneRE/LeadLine/internal/extraction"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/reply"
	"github.com/CornerstoneRE/LeadLine/internal/store"
)

// sender is the messaging dependency, satisfied by messaging.Service.
type sender interface {
	SendMessage(ctx context.Context, to string, body string) error
	NotifyAgent(ctx context.Context, body string) error
}

// Processor handles one inbound SMS end to end.
type Processor struct {
	store     store.Store
	msg       sender
	extractor extraction.Extractor
	replies   *reply.Renderer

	locks phoneLocks
	now   func() time.Time
}

// New creates a processor.
func New(st store.Store, msg sender, ex extraction.Extractor, rr *reply.Renderer) *Processor {
	return &Processor{
		store:     st,
		msg:       msg,
		extractor: ex,
		replies:   rr,
		now:       time.Now,
	}
}

// Result reports what ProcessInbound did.
type Result struct {
	// Silent is true when no reply was sent (tour-ready leads go quiet).
	Silent bool
	// Action is the decision that produced the reply.
	Action conversation.Action
	// Reply is the SMS body that was sent, empty when Silent.
	Reply string
}

// ProcessInbound runs the full pipeline for one inbound message. Messages
// from the same phone number are serialized; different numbers proceed in
// parallel.
func (p *Processor) ProcessInbound(ctx context.Context, phone, message string) (Result, error) {
	unlock := p.locks.lock(phone)
	defer unlock()

	now := p.now().UTC()
	lead, err := p.getOrCreateLead(ctx, phone)
	if err != nil {
		return Result{}, err
	}

	// A lead that already completed the funnel stays silent; the agent owns
	// the conversation from here.
	if lead.TourReady {
		slog.Debug("Processor.ProcessInbound: tour-ready lead, staying silent", "phone", phone)
		if err := p.store.AppendHistory(ctx, phone, models.HistoryLine(now, models.SenderLead, message)); err != nil {
			slog.Error("Processor.ProcessInbound: failed to record message", "phone", phone, "error", err)
		}
		return Result{Silent: true}, nil
	}

	// Extraction failures degrade to an empty result; the decision engine
	// still produces a sensible reply without it.
	extracted, err := p.extractor.Extract(ctx, message, *lead)
	if err != nil {
		slog.Warn("Processor.ProcessInbound: extraction failed, continuing without",
			"phone", phone, "error", err)
		extracted = map[string]string{}
	}

	delayInfo := delay.Detect(message)
	decision := conversation.Decide(*lead, extracted, message, delayInfo)
	virtual := lead.Merge(extracted)

	if err := p.persistTurn(ctx, phone, message, extracted, delayInfo, now); err != nil {
		return Result{}, err
	}

	if ready, ok := decision.(conversation.ReadyForAgent); ok && ready.ShouldMarkTourReady {
		p.completeLead(ctx, virtual, now)
	} else {
		p.ensureFollowUpScheduled(ctx, virtual, delayInfo, now)
	}

	body := p.replies.Render(ctx, decision, virtual)
	if err := p.msg.SendMessage(ctx, phone, body); err != nil {
		return Result{}, fmt.Errorf("failed to send reply to %s: %w", phone, err)
	}
	if err := p.store.AppendHistory(ctx, phone, models.HistoryLine(now, models.SenderBot, body)); err != nil {
		slog.Error("Processor.ProcessInbound: failed to record reply", "phone", phone, "error", err)
	}
	if err := p.store.MarkContacted(ctx, phone, now); err != nil {
		slog.Error("Processor.ProcessInbound: failed to mark contact", "phone", phone, "error", err)
	}

	slog.Info("Processor.ProcessInbound: message handled",
		"phone", phone, "action", decision.Action(), "extracted", len(extracted))
	return Result{Action: decision.Action(), Reply: body}, nil
}

// SendFallback delivers the generic reply when the pipeline itself failed.
func (p *Processor) SendFallback(ctx context.Context, phone string) {
	if err := p.msg.SendMessage(ctx, phone, reply.FallbackReply); err != nil {
		slog.Error("Processor.SendFallback: fallback send failed", "phone", phone, "error", err)
	}
}

func (p *Processor) getOrCreateLead(ctx context.Context, phone string) (*models.Lead, error) {
	lead, err := p.store.GetLeadByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead %s: %w", phone, err)
	}
	if lead != nil {
		return lead, nil
	}
	fresh, err := models.NewLead(phone)
	if err != nil {
		return nil, err
	}
	if err := p.store.CreateLead(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to create lead %s: %w", phone, err)
	}
	slog.Info("Processor.getOrCreateLead: new lead created", "phone", phone)
	return &fresh, nil
}

// persistTurn records the inbound message, any extracted fields, and a delay
// pause before the reply goes out.
func (p *Processor) persistTurn(ctx context.Context, phone, message string, extracted map[string]string, delayInfo *delay.Info, now time.Time) error {
	if len(extracted) > 0 {
		if err := p.store.UpdateLead(ctx, phone, extracted); err != nil {
			return fmt.Errorf("failed to save extracted fields for %s: %w", phone, err)
		}
	}
	if err := p.store.AppendHistory(ctx, phone, models.HistoryLine(now, models.SenderLead, message)); err != nil {
		return fmt.Errorf("failed to record message for %s: %w", phone, err)
	}
	if delayInfo != nil {
		resume := delay.ResumeTime(*delayInfo, now)
		if err := p.store.PauseFollowUpsUntil(ctx, phone, resume); err != nil {
			return fmt.Errorf("failed to pause follow-ups for %s: %w", phone, err)
		}
		slog.Info("Processor.persistTurn: follow-ups paused",
			"phone", phone, "until", resume, "delay_type", delayInfo.DelayType)
	}
	return nil
}

// completeLead marks the lead tour-ready and notifies the agent. Both run at
// most once per lead: the tour-ready flag silences all later messages.
func (p *Processor) completeLead(ctx context.Context, lead models.Lead, now time.Time) {
	if err := p.store.SetTourReady(ctx, lead.Phone); err != nil {
		slog.Error("Processor.completeLead: failed to set tour ready", "phone", lead.Phone, "error", err)
		return
	}
	name := lead.Name
	if name == "" {
		name = "A lead"
	}
	notification := fmt.Sprintf("%s with phone number %s is ready for a tour", name, lead.Phone)
	if lead.TourAvailability != "" {
		notification += fmt.Sprintf(" (availability: %s)", lead.TourAvailability)
	}
	if err := p.msg.NotifyAgent(ctx, notification); err != nil {
		slog.Error("Processor.completeLead: agent notification failed", "phone", lead.Phone, "error", err)
	}
	slog.Info("Processor.completeLead: lead handed to agent", "phone", lead.Phone)
}

// ensureFollowUpScheduled puts an unqualified, unscheduled lead onto the
// first step of the follow-up cadence. Leads that just asked for a delay are
// left to the pause instead.
func (p *Processor) ensureFollowUpScheduled(ctx context.Context, lead models.Lead, delayInfo *delay.Info, now time.Time) {
	if delayInfo != nil || lead.IsQualified() {
		return
	}
	if lead.NextFollowUpTime != nil || lead.FollowUpPausedUntil != nil {
		return
	}
	at := now.AddDate(0, 0, 1)
	if err := p.store.ScheduleFollowUp(ctx, lead.Phone, at, models.FollowUpStageScheduled); err != nil {
		slog.Error("Processor.ensureFollowUpScheduled: scheduling failed", "phone", lead.Phone, "error", err)
		return
	}
	slog.Debug("Processor.ensureFollowUpScheduled: first follow-up scheduled",
		"phone", lead.Phone, "at", at)
}

// phoneLocks serializes processing per phone number.
type phoneLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *phoneLocks) lock(phone string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	m, ok := p.locks[phone]
	if !ok {
		m = &sync.Mutex{}
		p.locks[phone] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
