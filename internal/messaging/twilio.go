package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender is the raw provider dependency of TwilioService.
type SMSSender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for SMS delivery.
type Client struct {
	client *twilio.RestClient
	from   string
}

// NewClient creates a Twilio SMS client. Credentials fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and SMS_FROM_NUMBER environment
// variables.
func NewClient(options ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("SMS_FROM_NUMBER")
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("sending phone number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{client: client, from: cfg.FromNumber}, nil
}

// SendMessage sends one SMS through the Twilio REST API.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio.SendMessage: send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("Twilio.SendMessage: message sent", "to", to, "body_length", len(body))
	return nil
}

// TwilioService implements Service on top of an SMSSender.
type TwilioService struct {
	sender     SMSSender
	agentPhone string
}

// NewTwilioService creates a TwilioService. The agent phone may be empty, in
// which case NotifyAgent logs and drops the notification.
func NewTwilioService(sender SMSSender, agentPhone string) *TwilioService {
	return &TwilioService{sender: sender, agentPhone: agentPhone}
}

// ValidateAndCanonicalizeRecipient validates a recipient phone number and
// returns it in E.164 format.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizeE164(recipient)
}

// SendMessage validates the recipient and sends the SMS.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.SendMessage: recipient validation failed", "to", to, "error", err)
		return err
	}
	return s.sender.SendMessage(ctx, canonical, body)
}

// NotifyAgent sends the body to the configured agent number.
func (s *TwilioService) NotifyAgent(ctx context.Context, body string) error {
	if s.agentPhone == "" {
		slog.Warn("TwilioService.NotifyAgent: no agent phone configured, dropping notification")
		return nil
	}
	return s.SendMessage(ctx, s.agentPhone, body)
}
