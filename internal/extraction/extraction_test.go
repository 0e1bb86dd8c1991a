package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	content string
	err     error

	lastSystem string
	lastUser   string
}

func (m *mockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.content, m.err
}

func TestExtract_Success(t *testing.T) {
	mock := &mockGenerator{content: `{"beds": "2", "price": "2500", "location": "Allston"}`}
	e := NewOpenAIExtractor(mock)

	fields, err := e.Extract(context.Background(), "2 bed in Allston around 2500", models.Lead{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %v", fields)
	}
	if fields["beds"] != "2" || fields["price"] != "2500" || fields["location"] != "Allston" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestExtract_CodeFencedJSON(t *testing.T) {
	mock := &mockGenerator{content: "```json\n{\"move_in_date\": \"September 1\"}\n```"}
	e := NewOpenAIExtractor(mock)

	fields, err := e.Extract(context.Background(), "moving sept 1", models.Lead{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if fields["move_in_date"] != "September 1" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestExtract_DropsUnknownKeysAndBlanks(t *testing.T) {
	mock := &mockGenerator{content: `{"beds": "2", "pets": "cat", "baths": "  "}`}
	e := NewOpenAIExtractor(mock)

	fields, err := e.Extract(context.Background(), "2 bed, I have a cat", models.Lead{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(fields) != 1 || fields["beds"] != "2" {
		t.Errorf("expected only beds, got %v", fields)
	}
}

func TestExtract_NonJSONDegradesToEmpty(t *testing.T) {
	mock := &mockGenerator{content: "I could not find any rental preferences."}
	e := NewOpenAIExtractor(mock)

	fields, err := e.Extract(context.Background(), "hello", models.Lead{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("expected empty map, got %v", fields)
	}
}

func TestExtract_GeneratorError(t *testing.T) {
	mock := &mockGenerator{err: errors.New("rate limited")}
	e := NewOpenAIExtractor(mock)

	_, err := e.Extract(context.Background(), "hello", models.Lead{})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected wrapped generator error, got %v", err)
	}
}

func TestExtract_PromptIncludesKnownFields(t *testing.T) {
	mock := &mockGenerator{content: `{}`}
	e := NewOpenAIExtractor(mock)

	lead := models.Lead{Beds: "2", Location: "Fenway"}
	if _, err := e.Extract(context.Background(), "same area as before", lead); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(mock.lastUser, "beds: 2") || !strings.Contains(mock.lastUser, "location: Fenway") {
		t.Errorf("prompt missing known fields:\n%s", mock.lastUser)
	}
	if !strings.Contains(mock.lastUser, "same area as before") {
		t.Errorf("prompt missing message text:\n%s", mock.lastUser)
	}
}
