package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CornerstoneRE/LeadLine/internal/followup"
	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/outreach"
	"github.com/CornerstoneRE/LeadLine/internal/processor"
	"github.com/CornerstoneRE/LeadLine/internal/reply"
	"github.com/CornerstoneRE/LeadLine/internal/store"
)

// stubExtractor implements extraction.Extractor with canned fields.
type stubExtractor struct {
	fields map[string]string
}

func (s *stubExtractor) Extract(ctx context.Context, message string, lead models.Lead) (map[string]string, error) {
	return s.fields, nil
}

func newTestServer() (*Server, *store.InMemoryStore, *messaging.MockService) {
	st := store.NewInMemoryStore()
	msg := messaging.NewMockService()
	rr := reply.NewRenderer(nil)
	proc := processor.New(st, msg, &stubExtractor{fields: map[string]string{}}, rr)
	out := outreach.NewHandler(st, msg, rr)
	runner := followup.NewRunner(st, msg)
	return NewServer(":0", proc, out, runner, msg, []string{"+16175550199"}), st, msg
}

func webhookBody(from, text string) string {
	envelope := models.WebhookEnvelope{Data: models.WebhookEvent{
		EventType: models.EventMessageReceived,
		Payload: models.MessagePayload{
			From: models.PhoneParty{PhoneNumber: from},
			To:   []models.PhoneParty{{PhoneNumber: "+16175550198"}},
			Text: text,
		},
	}}
	b, _ := json.Marshal(envelope)
	return string(b)
}

func TestWebhookHandlerProcessesInboundMessage(t *testing.T) {
	s, st, msg := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(webhookBody("+16175550100", "hi there")))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != models.APIStatusOK {
		t.Errorf("status = %q", resp.Status)
	}

	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550100")
	if lead == nil {
		t.Fatal("lead not created from webhook")
	}
	if len(msg.Sent) != 1 {
		t.Errorf("sent = %+v, want one reply", msg.Sent)
	}
}

func TestWebhookHandlerAcknowledgesStatusEvents(t *testing.T) {
	s, _, msg := newTestServer()

	body := `{"data": {"event_type": "message.delivered"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(msg.Sent) != 0 {
		t.Errorf("status event produced a send: %+v", msg.Sent)
	}
}

func TestWebhookHandlerIgnoresEchoes(t *testing.T) {
	s, st, msg := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(webhookBody("+16175550199", "agent text")))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(msg.Sent) != 0 {
		t.Errorf("echo produced a send: %+v", msg.Sent)
	}
	lead, _ := st.GetLeadByPhone(context.Background(), "+16175550199")
	if lead != nil {
		t.Error("echo created a lead")
	}
}

func TestWebhookHandlerRejectsInvalidPayload(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"data": {}}`))
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != models.ErrorTypeValidation {
		t.Errorf("Type = %q, want validation error", envelope.Type)
	}
	if envelope.Timestamp == "" {
		t.Error("Timestamp is empty")
	}
}

func TestWebhookHandlerMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.webhookHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q", allow)
	}
}

func TestOutreachHandler(t *testing.T) {
	s, _, msg := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/outreach",
		strings.NewReader(`{"phone": "+16175550100", "name": "dana"}`))
	rec := httptest.NewRecorder()
	s.outreachHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(msg.Sent) != 1 {
		t.Fatalf("sent = %+v", msg.Sent)
	}

	// A second trigger for the same number conflicts.
	req = httptest.NewRequest(http.MethodPost, "/outreach",
		strings.NewReader(`{"phone": "+16175550100", "name": "dana"}`))
	rec = httptest.NewRecorder()
	s.outreachHandler(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestOutreachHandlerValidation(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/outreach", strings.NewReader(`{"name": "dana"}`))
	rec := httptest.NewRecorder()
	s.outreachHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing phone status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/outreach", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	s.outreachHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
}

func TestFollowupsRunHandler(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/followups/run", nil)
	rec := httptest.NewRecorder()
	s.followupsRunHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status models.APIStatus `json:"status"`
		Result followup.Report  `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != models.APIStatusOK {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestNotFoundHandler(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != models.ErrorTypeNotFound {
		t.Errorf("Type = %q, want %q", envelope.Type, models.ErrorTypeNotFound)
	}
	if !strings.Contains(envelope.Message, "/nope") {
		t.Errorf("Message = %q, should name the path", envelope.Message)
	}
}

func TestHealthHandler(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "leadline") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
