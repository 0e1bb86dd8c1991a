package conversation

import (
	"strings"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// maxBundledQuestions caps how many missing fields one reply asks about.
const maxBundledQuestions = 2

// questionPairs groups fields that read naturally as a single question.
// Checked in declaration order; a pair applies only when both halves are
// missing.
var questionPairs = []struct {
	a, b  string
	label string
}{
	{models.FieldBeds, models.FieldBaths, "bedrooms and bathrooms"},
	{models.FieldPrice, models.FieldLocation, "budget and preferred area"},
	{models.FieldMoveInDate, models.FieldAmenities, "move-in date and amenities"},
}

// knownInfo summarizes every answered field as "field: value" pairs.
func knownInfo(lead models.Lead) string {
	var parts []string
	for _, field := range append(append([]string{}, models.RequiredFields...), models.OptionalFields...) {
		value, _ := lead.Field(field)
		if strings.TrimSpace(value) == "" {
			continue
		}
		parts = append(parts, models.FieldLabels[field]+": "+value)
	}
	if len(parts) == 0 {
		return "No information yet"
	}
	return strings.Join(parts, ", ")
}

// formatMissingFields renders missing field names with their human labels.
func formatMissingFields(missing []string) string {
	if len(missing) == 0 {
		return "All required information collected"
	}
	labels := make([]string, 0, len(missing))
	for _, field := range missing {
		label, ok := models.FieldLabels[field]
		if !ok {
			label = field
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

// logicalNextQuestions picks up to two things to ask about next, preferring
// the grouped pairs and falling back to the first missing fields in declared
// order.
func logicalNextQuestions(lead models.Lead) []string {
	missing := lead.MissingRequiredFields()
	missingSet := make(map[string]bool, len(missing))
	for _, f := range missing {
		missingSet[f] = true
	}

	for _, pair := range questionPairs {
		if missingSet[pair.a] && missingSet[pair.b] {
			return []string{pair.label}
		}
	}

	if len(missing) > maxBundledQuestions {
		missing = missing[:maxBundledQuestions]
	}
	questions := make([]string, 0, len(missing))
	for _, field := range missing {
		questions = append(questions, models.FieldLabels[field])
	}
	return questions
}

// progressNote acknowledges whatever the extraction just picked up.
func progressNote(analysis Analysis) string {
	if len(analysis.NewlyExtracted) == 0 {
		return ""
	}
	var parts []string
	// Walk the declared field order so the note is deterministic.
	ordered := append(append([]string{}, models.RequiredFields...), models.OptionalFields...)
	ordered = append(ordered, models.FieldTourAvailability, models.FieldName, models.FieldEmail)
	for _, field := range ordered {
		value, ok := analysis.NewlyExtracted[field]
		if !ok {
			continue
		}
		label, has := models.FieldLabels[field]
		if !has {
			label = field
		}
		parts = append(parts, label+": "+value)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Got it - " + strings.Join(parts, ", ") + "."
}

// clarificationRequest phrases a follow-up question for the first unclear
// field.
func clarificationRequest(unclear []string) string {
	if len(unclear) == 0 {
		return "Could you provide more details?"
	}
	label, ok := models.FieldLabels[unclear[0]]
	if !ok {
		label = unclear[0]
	}
	return "Could you clarify your " + label + "?"
}

// qualificationSummary renders the collected requirements as one line.
func qualificationSummary(lead models.Lead) string {
	var parts []string
	if lead.Beds != "" && lead.Baths != "" {
		parts = append(parts, lead.Beds+" bed, "+lead.Baths+" bath")
	}
	if lead.Price != "" {
		parts = append(parts, "budget: "+lead.Price)
	}
	if lead.Location != "" {
		parts = append(parts, "area: "+lead.Location)
	}
	if lead.MoveInDate != "" {
		parts = append(parts, "move-in: "+lead.MoveInDate)
	}
	if lead.Amenities != "" {
		parts = append(parts, "amenities: "+lead.Amenities)
	}
	if len(parts) == 0 {
		return "Qualified lead"
	}
	return strings.Join(parts, ", ")
}
