// Package extraction turns free-form lead messages into structured
// qualification fields using an LLM.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CornerstoneRE/LeadLine/internal/genai"
	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// Extractor pulls qualification fields out of one inbound message.
type Extractor interface {
	// Extract returns the fields mentioned in the message, keyed by the
	// canonical field names. An empty map means nothing was extractable.
	Extract(ctx context.Context, message string, lead models.Lead) (map[string]string, error)
}

// Generator is the LLM dependency, satisfied by *genai.Client.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIExtractor implements Extractor on top of a chat completion model.
type OpenAIExtractor struct {
	gen Generator
}

// NewOpenAIExtractor creates an extractor backed by the given generator.
// A nil generator disables extraction; Extract then always returns an empty
// map.
func NewOpenAIExtractor(gen Generator) *OpenAIExtractor {
	return &OpenAIExtractor{gen: gen}
}

const systemPrompt = `You extract apartment rental preferences from a prospective tenant's SMS message.
Respond with a single JSON object and nothing else. Use only these keys:
move_in_date, price, beds, baths, location, amenities, rental_urgency, boston_rental_experience, tour_availability, name, email.
Include a key only when the message states or clearly implies its value. Values are short strings.
If the message contains no rental information, respond with {}.`

// Extract asks the model for a JSON object of fields and filters the result
// down to the known field names. Model misbehavior (prose, fences, unknown
// keys) degrades to a smaller or empty map rather than an error; an error is
// returned only when the completion itself fails.
func (e *OpenAIExtractor) Extract(ctx context.Context, message string, lead models.Lead) (map[string]string, error) {
	if e.gen == nil {
		return map[string]string{}, nil
	}
	content, err := e.gen.Generate(ctx, systemPrompt, userPrompt(message, lead))
	if err != nil {
		return nil, fmt.Errorf("extraction completion failed: %w", err)
	}

	object, ok := genai.ExtractJSONObject(content)
	if !ok {
		slog.Warn("Extraction.Extract: completion contained no JSON object",
			"content_length", len(content))
		return map[string]string{}, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		slog.Warn("Extraction.Extract: completion JSON did not parse", "error", err)
		return map[string]string{}, nil
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.ToLower(strings.TrimSpace(key))
		if !knownField(key) {
			slog.Debug("Extraction.Extract: dropping unknown key", "key", key)
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	slog.Debug("Extraction.Extract: extracted fields", "count", len(fields))
	return fields, nil
}

// userPrompt gives the model the current known state so it can resolve
// references like "same as before" and avoid re-extracting known values.
func userPrompt(message string, lead models.Lead) string {
	var b strings.Builder
	b.WriteString("Known so far:\n")
	known := false
	for _, f := range append(append([]string{}, models.RequiredFields...), models.OptionalFields...) {
		value, _ := lead.Field(f)
		if strings.TrimSpace(value) == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f, value)
		known = true
	}
	if !known {
		b.WriteString("- nothing yet\n")
	}
	b.WriteString("\nMessage:\n")
	b.WriteString(message)
	return b.String()
}

func knownField(name string) bool {
	switch name {
	case models.FieldMoveInDate, models.FieldPrice, models.FieldBeds,
		models.FieldBaths, models.FieldLocation, models.FieldAmenities,
		models.FieldRentalUrgency, models.FieldBostonRentalExperience,
		models.FieldTourAvailability, models.FieldName, models.FieldEmail:
		return true
	default:
		return false
	}
}
