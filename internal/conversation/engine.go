package conversation

import (
	"log/slog"
	"strings"

	"github.com/CornerstoneRE/LeadLine/internal/delay"
	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// Extraction-quality thresholds.
const (
	// minClearValueLength is the shortest trimmed value not considered a
	// non-answer on length alone.
	minClearValueLength = 2
	// unclearConfidencePenalty is applied once per unclear field.
	unclearConfidencePenalty = 0.7
	// unclearConfidenceFloor marks the whole extraction unclear below it.
	unclearConfidenceFloor = 0.8
)

// nonAnswers are short replies that carry no extractable information.
var nonAnswers = map[string]bool{
	"yes": true, "no": true, "maybe": true, "idk": true,
}

// Analysis classifies an extraction result against the lead's current state.
type Analysis struct {
	HasNewData     bool
	IsUnclear      bool
	UnclearFields  []string
	NewlyExtracted map[string]string
	Confidence     float64
}

// Analyze compares extracted values to the lead's stored values. A field
// counts as new data when its trimmed value differs from the stored trimmed
// value; it counts as unclear when the value is too short or a known
// non-answer.
func Analyze(extracted map[string]string, lead models.Lead) Analysis {
	if len(extracted) == 0 {
		return Analysis{NewlyExtracted: map[string]string{}}
	}

	newly := make(map[string]string)
	var unclear []string
	confidence := 1.0

	for field, value := range extracted {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		current, _ := lead.Field(field)
		if strings.TrimSpace(current) != trimmed {
			newly[field] = value
		}
		if len(trimmed) < minClearValueLength || nonAnswers[strings.ToLower(trimmed)] {
			unclear = append(unclear, field)
			confidence *= unclearConfidencePenalty
		}
	}

	return Analysis{
		HasNewData:     len(newly) > 0,
		IsUnclear:      len(unclear) > 0 || confidence < unclearConfidenceFloor,
		UnclearFields:  unclear,
		NewlyExtracted: newly,
		Confidence:     confidence,
	}
}

// Decide picks exactly one action for the inbound message. Rules are
// evaluated top to bottom and the first match wins; this ordering is the
// whole algorithm, so keep it in this one function.
//
// The lead must be the stored snapshot from before this message's extraction
// is merged in, and must carry a phone number. Decide merges the extraction
// itself so the analysis can tell new values from already-known ones.
func Decide(lead models.Lead, extracted map[string]string, message string, delayInfo *delay.Info) Decision {
	if lead.Phone == "" {
		// Broken caller, not a lead problem. Decide cannot fail, so log loudly
		// and fall through to the safest action.
		slog.Error("conversation.Decide: lead snapshot has no phone number")
	}

	// Rule 1: a lead with no history at all gets the opener, even if the
	// message contains a delay keyword.
	if strings.TrimSpace(lead.ChatHistory) == "" {
		return InitialOutreach{LeadName: lead.Name}
	}

	// Rule 2: explicit postponement requests are acknowledged before anything
	// else is considered.
	if delayInfo != nil {
		return AcknowledgeDelay{DelayDays: delayInfo.DelayDays, DelayType: delayInfo.DelayType}
	}

	// Rule 3: route on what the extraction gave us. The virtual lead carries
	// the merged view every downstream rule should see.
	analysis := Analyze(extracted, lead)
	virtual := lead.Merge(extracted)
	slog.Debug("conversation.Decide: analyzed extraction",
		"phone", lead.Phone,
		"has_new_data", analysis.HasNewData,
		"is_unclear", analysis.IsUnclear,
		"qualified", virtual.IsQualified(),
		"missing_required", virtual.MissingRequiredFields())

	if analysis.HasNewData {
		if virtual.IsQualified() {
			return decideForQualified(virtual, analysis)
		}
		return ContinueQualification{
			Known:          knownInfo(virtual),
			StillNeeded:    formatMissingFields(virtual.MissingRequiredFields()),
			NextQuestions:  logicalNextQuestions(virtual),
			NewlyExtracted: analysis.NewlyExtracted,
			ProgressNote:   progressNote(analysis),
		}
	}

	if analysis.IsUnclear {
		return ClarifyInformation{
			UnclearField: firstOr(analysis.UnclearFields, "information"),
			Request:      clarificationRequest(analysis.UnclearFields),
			Confidence:   analysis.Confidence,
		}
	}

	// Rule 4: nothing new, but the lead is already qualified; resume wherever
	// the qualified flow left off.
	if virtual.IsQualified() {
		return decideForQualified(virtual, analysis)
	}

	// Rule 5: default.
	return GentleRedirect{
		Known:       knownInfo(virtual),
		StillNeeded: formatMissingFields(virtual.MissingRequiredFields()),
	}
}

// decideForQualified is the branch for leads with all required fields
// present: summary first, then handoff once the scheduling question is
// answered, then optional questions, then the availability ask.
func decideForQualified(lead models.Lead, analysis Analysis) Decision {
	if !hasBeenSummarized(lead) {
		return SummaryConfirmation{
			Summary:        qualificationSummary(lead),
			ProgressNote:   progressNote(analysis),
			NewlyExtracted: analysis.NewlyExtracted,
		}
	}
	// An answered scheduling question means there is nothing left for the bot
	// to collect, optional fields included.
	if lead.HasField(models.FieldTourAvailability) && !lead.TourReady {
		return ReadyForAgent{ShouldMarkTourReady: true}
	}
	if !hasCompletedOptionalQuestions(lead) {
		return TransitionToOptional{
			OptionalFields: lead.MissingOptionalFields(),
			ProgressNote:   progressNote(analysis),
			NewlyExtracted: analysis.NewlyExtracted,
		}
	}
	if lead.NeedsTourAvailability() {
		return RequestAvailability{Summary: qualificationSummary(lead)}
	}
	return ReadyForAgent{ShouldMarkTourReady: true}
}

func firstOr(fields []string, fallback string) string {
	if len(fields) > 0 {
		return fields[0]
	}
	return fallback
}
