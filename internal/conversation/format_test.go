package conversation

import (
	"strings"
	"testing"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

func TestKnownInfo(t *testing.T) {
	if got := knownInfo(models.Lead{}); got != "No information yet" {
		t.Errorf("knownInfo(empty) = %q", got)
	}
	lead := models.Lead{Beds: "2", Price: "2500"}
	got := knownInfo(lead)
	if !strings.Contains(got, models.FieldLabels[models.FieldBeds]+": 2") {
		t.Errorf("knownInfo = %q, missing beds", got)
	}
	if !strings.Contains(got, models.FieldLabels[models.FieldPrice]+": 2500") {
		t.Errorf("knownInfo = %q, missing price", got)
	}
}

func TestFormatMissingFields(t *testing.T) {
	if got := formatMissingFields(nil); got != "All required information collected" {
		t.Errorf("formatMissingFields(nil) = %q", got)
	}
	got := formatMissingFields([]string{models.FieldMoveInDate, models.FieldBaths})
	want := models.FieldLabels[models.FieldMoveInDate] + ", " + models.FieldLabels[models.FieldBaths]
	if got != want {
		t.Errorf("formatMissingFields = %q, want %q", got, want)
	}
}

func TestLogicalNextQuestionsPrefersPairs(t *testing.T) {
	// Everything missing: beds+baths is the first declared pair.
	got := logicalNextQuestions(models.Lead{})
	if len(got) != 1 || got[0] != "bedrooms and bathrooms" {
		t.Errorf("logicalNextQuestions(empty) = %v", got)
	}

	// Beds answered breaks the first pair; price+location still pairs.
	got = logicalNextQuestions(models.Lead{Beds: "2"})
	if len(got) != 1 || got[0] != "budget and preferred area" {
		t.Errorf("logicalNextQuestions(beds set) = %v", got)
	}
}

func TestLogicalNextQuestionsFallsBackToSingles(t *testing.T) {
	lead := models.Lead{Beds: "2", Price: "2500", MoveInDate: "Sept 1"}
	got := logicalNextQuestions(lead)
	if len(got) != 2 {
		t.Fatalf("logicalNextQuestions = %v, want 2 entries", got)
	}
	if got[0] != models.FieldLabels[models.FieldBaths] || got[1] != models.FieldLabels[models.FieldLocation] {
		t.Errorf("logicalNextQuestions = %v", got)
	}
}

func TestProgressNoteDeterministicOrder(t *testing.T) {
	a := Analysis{NewlyExtracted: map[string]string{"location": "Fenway", "beds": "3"}}
	got := progressNote(a)
	want := "Got it - " + models.FieldLabels[models.FieldBeds] + ": 3, " +
		models.FieldLabels[models.FieldLocation] + ": Fenway."
	if got != want {
		t.Errorf("progressNote = %q, want %q", got, want)
	}
	if progressNote(Analysis{}) != "" {
		t.Error("progressNote(empty) should be empty")
	}
}

func TestClarificationRequest(t *testing.T) {
	got := clarificationRequest([]string{models.FieldPrice})
	if !strings.Contains(got, models.FieldLabels[models.FieldPrice]) {
		t.Errorf("clarificationRequest = %q", got)
	}
	if clarificationRequest(nil) != "Could you provide more details?" {
		t.Errorf("clarificationRequest(nil) = %q", clarificationRequest(nil))
	}
}

func TestQualificationSummary(t *testing.T) {
	lead := models.Lead{
		Beds: "2", Baths: "1", Price: "2500", Location: "Allston",
		MoveInDate: "September 1", Amenities: "laundry",
	}
	got := qualificationSummary(lead)
	want := "2 bed, 1 bath, budget: 2500, area: Allston, move-in: September 1, amenities: laundry"
	if got != want {
		t.Errorf("qualificationSummary = %q, want %q", got, want)
	}
	if qualificationSummary(models.Lead{}) != "Qualified lead" {
		t.Error("empty lead should render the generic label")
	}
}
