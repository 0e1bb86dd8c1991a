// Package messaging provides the outbound SMS delivery abstraction.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is the region hint for parsing numbers without a country
// code.
const DefaultRegion = "US"

// ErrInvalidPhoneNumber indicates a recipient that could not be parsed or
// validated as a real phone number.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// phone number to E.164. Returns the canonicalized recipient and an error
	// if validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends an SMS to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// NotifyAgent sends an SMS to the configured human agent.
	NotifyAgent(ctx context.Context, body string) error
}

// CanonicalizeE164 parses and validates a phone number, returning it in
// E.164 format. Numbers without a country code are parsed as DefaultRegion.
func CanonicalizeE164(recipient string) (string, error) {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" {
		return "", fmt.Errorf("%w: recipient is empty", ErrInvalidPhoneNumber)
	}
	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPhoneNumber, recipient, err)
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, recipient)
	}
	canonical := phonenumbers.Format(number, phonenumbers.E164)
	if canonical != trimmed {
		slog.Debug("Messaging.CanonicalizeE164: canonicalized recipient",
			"original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
