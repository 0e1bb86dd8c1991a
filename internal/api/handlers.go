package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/CornerstoneRE/LeadLine/internal/messaging"
	"github.com/CornerstoneRE/LeadLine/internal/models"
	"github.com/CornerstoneRE/LeadLine/internal/outreach"
)

// maxWebhookBodySize caps the accepted request body.
const maxWebhookBodySize = 1 << 20

func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		slog.Warn("Server.webhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError("Unreadable request body"))
		return
	}

	event, err := models.ParseWebhookEvent(body)
	if err != nil {
		slog.Warn("Server.webhookHandler: invalid webhook payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError(err.Error()))
		return
	}

	// Delivery receipts and other status events are acknowledged and ignored.
	if !event.IsMessageReceived() {
		slog.Debug("Server.webhookHandler: ignoring status event", "event_type", event.EventType)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event acknowledged", nil))
		return
	}

	// Our own outbound messages and the agent's texts come back as events
	// too; answering them would loop.
	for _, ignored := range s.ignoredSenders {
		if event.IsFrom(ignored) {
			slog.Debug("Server.webhookHandler: ignoring echo", "from", event.FromNumber())
			writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event acknowledged", nil))
			return
		}
	}

	phone, err := s.msg.ValidateAndCanonicalizeRecipient(event.FromNumber())
	if err != nil {
		slog.Warn("Server.webhookHandler: invalid sender number",
			"from", event.FromNumber(), "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError("Invalid sender phone number"))
		return
	}

	result, err := s.processor.ProcessInbound(r.Context(), phone, event.Payload.Text)
	if err != nil {
		// The lead still deserves an answer, and the provider must not
		// retry, so this reports success after the fallback goes out.
		slog.Error("Server.webhookHandler: processing failed, sending fallback",
			"phone", phone, "error", err)
		s.processor.SendFallback(r.Context(), phone)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message handled with fallback", nil))
		return
	}

	slog.Info("Server.webhookHandler: message processed",
		"phone", phone, "action", result.Action, "silent", result.Silent)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"action": result.Action,
		"silent": result.Silent,
	}))
}

// outreachRequest is the body of POST /outreach.
type outreachRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

func (s *Server) outreachHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.outreachHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req outreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.outreachHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError("Invalid JSON format"))
		return
	}
	if req.Phone == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError("Missing phone number"))
		return
	}

	lead, err := s.outreach.Trigger(r.Context(), req.Phone, req.Name)
	switch {
	case errors.Is(err, messaging.ErrInvalidPhoneNumber):
		slog.Warn("Server.outreachHandler: invalid phone", "phone", req.Phone, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.ValidationError("Invalid phone number"))
		return
	case errors.Is(err, outreach.ErrDuplicateLead):
		slog.Warn("Server.outreachHandler: duplicate lead", "phone", req.Phone)
		writeJSONResponse(w, http.StatusConflict, models.ValidationError("Lead already exists"))
		return
	case err != nil:
		slog.Error("Server.outreachHandler: outreach failed", "phone", req.Phone, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.InternalError())
		return
	}

	slog.Info("Server.outreachHandler: outreach triggered", "phone", lead.Phone)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Outreach sent", lead))
}

func (s *Server) followupsRunHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.followupsRunHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	report, err := s.followups.Sweep(r.Context())
	if err != nil {
		slog.Error("Server.followupsRunHandler: sweep failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.InternalError())
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(report))
}

// notFoundHandler answers every unregistered path with the pinned error
// envelope instead of the plain-text default.
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.notFoundHandler: unknown path", "method", r.Method, "path", r.URL.Path)
	writeJSONResponse(w, http.StatusNotFound, models.NotFoundError("Unknown endpoint: "+r.URL.Path))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"service": "leadline"}))
}
