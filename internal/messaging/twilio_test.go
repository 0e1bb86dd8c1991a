package messaging

import (
	"context"
	"errors"
	"testing"
)

// recordingSender implements SMSSender for testing.
type recordingSender struct {
	sent []SentMessage
	err  error
}

func (r *recordingSender) SendMessage(ctx context.Context, to string, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, SentMessage{To: to, Body: body})
	return nil
}

func TestCanonicalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"already E.164", "+16175550123", "+16175550123", true},
		{"national format", "(617) 555-0123", "+16175550123", true},
		{"bare digits", "6175550123", "+16175550123", true},
		{"with country code no plus", "16175550123", "+16175550123", true},
		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"too short", "12345", "", false},
		{"letters", "not a number", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeE164(tt.input)
			if tt.ok {
				if err != nil {
					t.Fatalf("CanonicalizeE164(%q) error: %v", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("CanonicalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
				}
				return
			}
			if !errors.Is(err, ErrInvalidPhoneNumber) {
				t.Errorf("CanonicalizeE164(%q) error = %v, want ErrInvalidPhoneNumber", tt.input, err)
			}
		})
	}
}

func TestTwilioServiceSendMessageCanonicalizes(t *testing.T) {
	sender := &recordingSender{}
	svc := NewTwilioService(sender, "")

	if err := svc.SendMessage(context.Background(), "(617) 555-0123", "hello"); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "+16175550123" {
		t.Errorf("To = %q, want canonicalized number", sender.sent[0].To)
	}
}

func TestTwilioServiceSendMessageRejectsInvalidRecipient(t *testing.T) {
	sender := &recordingSender{}
	svc := NewTwilioService(sender, "")

	err := svc.SendMessage(context.Background(), "garbage", "hello")
	if !errors.Is(err, ErrInvalidPhoneNumber) {
		t.Errorf("error = %v, want ErrInvalidPhoneNumber", err)
	}
	if len(sender.sent) != 0 {
		t.Error("message was sent despite invalid recipient")
	}
}

func TestTwilioServiceNotifyAgent(t *testing.T) {
	sender := &recordingSender{}
	svc := NewTwilioService(sender, "+16175550199")

	if err := svc.NotifyAgent(context.Background(), "lead ready"); err != nil {
		t.Fatalf("NotifyAgent error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "+16175550199" {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestTwilioServiceNotifyAgentWithoutAgentPhone(t *testing.T) {
	sender := &recordingSender{}
	svc := NewTwilioService(sender, "")

	if err := svc.NotifyAgent(context.Background(), "lead ready"); err != nil {
		t.Fatalf("NotifyAgent error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("notification sent without an agent phone")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("SMS_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("sid"), WithAuthToken("token")); err == nil {
		t.Error("expected error without a from number")
	}
	cli, err := NewClient(WithAccountSID("sid"), WithAuthToken("token"), WithFromNumber("+16175550100"))
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if cli.from != "+16175550100" {
		t.Errorf("from = %q", cli.from)
	}
}
