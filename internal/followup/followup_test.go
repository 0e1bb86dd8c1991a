package followup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/store"
)

func TestNextStep(t *testing.T) {
	tests := []struct {
		count     int
		wantStage models.FollowUpStage
		wantDays  int
		ok        bool
	}{
		{0, models.FollowUpStageFirst, 1, true},
		{1, models.FollowUpStageSecond, 3, true},
		{2, models.FollowUpStageThird, 5, true},
		{3, models.FollowUpStageFourth, 7, true},
		{4, models.FollowUpStageFinal, 10, true},
		{5, "", 0, false},
		{-1, "", 0, false},
	}
	for _, tt := range tests {
		step, ok := NextStep(tt.count)
		if ok != tt.ok {
			t.Errorf("NextStep(%d) ok = %v, want %v", tt.count, ok, tt.ok)
			continue
		}
		if ok && (step.Stage != tt.wantStage || step.Days != tt.wantDays) {
			t.Errorf("NextStep(%d) = %+v", tt.count, step)
		}
	}
}

func TestNextTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// After the first step (day 1), the second fires on day 3.
	got := NextTime(0, now)
	if got == nil || !got.Equal(now.AddDate(0, 0, 2)) {
		t.Errorf("NextTime(0) = %v", got)
	}
	// After the final step there is nothing left.
	if got := NextTime(len(Schedule)-1, now); got != nil {
		t.Errorf("NextTime(last) = %v, want nil", got)
	}
}

func TestEveryStageHasAMessage(t *testing.T) {
	for _, step := range Schedule {
		if Messages[step.Stage] == "" {
			t.Errorf("no message for stage %q", step.Stage)
		}
	}
}

func setupDueLead(t *testing.T, st store.Store, phone string, count int, due time.Time) {
	t.Helper()
	ctx := context.Background()
	lead, err := models.NewLead(phone)
	if err != nil {
		t.Fatalf("NewLead: %v", err)
	}
	lead.FollowUpCount = count
	if err := st.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	stage := models.FollowUpStageScheduled
	if count > 0 && count <= len(Schedule) {
		stage = Schedule[count-1].Stage
	}
	if err := st.ScheduleFollowUp(ctx, phone, due, stage); err != nil {
		t.Fatalf("ScheduleFollowUp: %v", err)
	}
}

func TestSweepSendsDueCheckIns(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	r := NewRunner(st, msg)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	setupDueLead(t, st, "+16175550100", 0, now.Add(-time.Hour))

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Due != 1 || report.Sent != 1 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}

	sent, ok := msg.LastSent()
	if !ok || sent.To != "+16175550100" || sent.Body != Messages[models.FollowUpStageFirst] {
		t.Errorf("sent = %+v", sent)
	}

	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550100")
	if lead.FollowUpCount != 1 || lead.FollowUpStage != models.FollowUpStageFirst {
		t.Errorf("lead = count %d stage %q", lead.FollowUpCount, lead.FollowUpStage)
	}
	if lead.NextFollowUpTime == nil || !lead.NextFollowUpTime.Equal(now.AddDate(0, 0, 2)) {
		t.Errorf("NextFollowUpTime = %v", lead.NextFollowUpTime)
	}
	if !strings.Contains(lead.ChatHistory, Messages[models.FollowUpStageFirst]) {
		t.Error("check-in not recorded in chat history")
	}
}

func TestSweepFinalStepEndsSchedule(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	r := NewRunner(st, msg)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	setupDueLead(t, st, "+16175550100", 4, now.Add(-time.Hour))

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Sent != 1 {
		t.Fatalf("report = %+v", report)
	}

	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550100")
	if lead.FollowUpCount != 5 || lead.FollowUpStage != models.FollowUpStageFinal {
		t.Errorf("lead = count %d stage %q", lead.FollowUpCount, lead.FollowUpStage)
	}
	if lead.NextFollowUpTime != nil {
		t.Errorf("NextFollowUpTime = %v, want nil", lead.NextFollowUpTime)
	}

	// Nothing left to send.
	report, err = r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Due != 0 {
		t.Errorf("second sweep report = %+v", report)
	}
}

func TestSweepCountsSendFailures(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	msg.SendErr = errors.New("carrier rejected")
	r := NewRunner(st, msg)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	setupDueLead(t, st, "+16175550100", 0, now.Add(-time.Hour))

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Due != 1 || report.Sent != 0 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}

	// Failed send leaves the schedule untouched for the next sweep.
	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550100")
	if lead.FollowUpCount != 0 || lead.NextFollowUpTime == nil {
		t.Errorf("lead after failed send = count %d next %v", lead.FollowUpCount, lead.NextFollowUpTime)
	}
}

func TestSweepClearsExhaustedCadence(t *testing.T) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	r := NewRunner(st, msg)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	setupDueLead(t, st, "+16175550100", 7, now.Add(-time.Hour))

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if report.Sent != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(msg.Sent) != 0 {
		t.Errorf("exhausted lead still received a message: %+v", msg.Sent)
	}
	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550100")
	if lead.NextFollowUpTime != nil {
		t.Errorf("NextFollowUpTime = %v, want nil", lead.NextFollowUpTime)
	}
}
