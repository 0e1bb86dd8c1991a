package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies a messaging provider webhook event.
type EventType string

const (
	EventMessageReceived  EventType = "message.received"
	EventMessageSent      EventType = "message.sent"
	EventMessageDelivered EventType = "message.delivered"
	EventMessageFailed    EventType = "message.failed"
)

// Webhook validation errors.
var (
	ErrMissingEventType   = errors.New("missing event_type in webhook data")
	ErrMissingFromNumber  = errors.New("missing from phone number in webhook payload")
	ErrMissingToNumbers   = errors.New("missing to phone numbers in webhook payload")
	ErrMissingMessageText = errors.New("missing message text in webhook payload")
)

// IsValidEventType checks if the given event type is one we recognize.
func IsValidEventType(et EventType) bool {
	switch et {
	case EventMessageReceived, EventMessageSent, EventMessageDelivered, EventMessageFailed:
		return true
	default:
		return false
	}
}

// PhoneParty is a single phone-number entry in a webhook payload.
type PhoneParty struct {
	PhoneNumber string `json:"phone_number"`
}

// MessagePayload carries the message details of a webhook event.
type MessagePayload struct {
	ID   string       `json:"id,omitempty"`
	From PhoneParty   `json:"from"`
	To   []PhoneParty `json:"to"`
	Text string       `json:"text"`
}

// WebhookEvent is one provider event. The provider wraps it in a top-level
// "data" object, see WebhookEnvelope.
type WebhookEvent struct {
	ID        string         `json:"id,omitempty"`
	EventType EventType      `json:"event_type"`
	Timestamp string         `json:"occurred_at,omitempty"`
	Payload   MessagePayload `json:"payload"`
}

// WebhookEnvelope is the raw webhook request body.
type WebhookEnvelope struct {
	Data WebhookEvent `json:"data"`
}

// ParseWebhookEvent decodes and validates a webhook request body. The event
// type must be present and known; message fields are validated only for
// message.received events, since other event types are acknowledged without
// processing.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("invalid webhook JSON: %w", err)
	}
	event := envelope.Data
	if event.EventType == "" {
		return nil, ErrMissingEventType
	}
	if !IsValidEventType(event.EventType) {
		return nil, fmt.Errorf("unsupported event type: %s", event.EventType)
	}
	if event.IsMessageReceived() {
		if err := event.validateMessage(); err != nil {
			return nil, err
		}
	}
	return &event, nil
}

func (e *WebhookEvent) validateMessage() error {
	if e.Payload.From.PhoneNumber == "" {
		return ErrMissingFromNumber
	}
	if len(e.ToNumbers()) == 0 {
		return ErrMissingToNumbers
	}
	if e.Payload.Text == "" {
		return ErrMissingMessageText
	}
	return nil
}

// IsMessageReceived reports whether this event is an inbound message.
func (e *WebhookEvent) IsMessageReceived() bool {
	return e.EventType == EventMessageReceived
}

// FromNumber returns the sender's phone number.
func (e *WebhookEvent) FromNumber() string {
	return e.Payload.From.PhoneNumber
}

// ToNumbers returns the non-empty destination phone numbers.
func (e *WebhookEvent) ToNumbers() []string {
	var numbers []string
	for _, p := range e.Payload.To {
		if p.PhoneNumber != "" {
			numbers = append(numbers, p.PhoneNumber)
		}
	}
	return numbers
}

// IsFrom reports whether the event was sent by the given phone number.
// Used for echo suppression of the agent and sending numbers.
func (e *WebhookEvent) IsFrom(phone string) bool {
	return phone != "" && e.Payload.From.PhoneNumber == phone
}
