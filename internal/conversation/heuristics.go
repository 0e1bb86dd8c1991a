package conversation

import (
	"strings"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// The summarized/optional-complete checks are substring scans over the last
// few raw chat lines. Deliberately crude; the phrase lists below are pinned
// by tests and must not be "improved" without updating them.

// confirmationPhrases indicate the lead accepted the qualification summary.
var confirmationPhrases = []string{
	"looks good", "yes", "correct", "move on", "ready", "sounds good",
	"perfect", "that's right", "confirmed", "okay", "good",
}

// agentHandoffPhrases indicate the bot already announced the agent handoff.
var agentHandoffPhrases = []string{
	"ready to send your information to my human agent",
	"send your information to my human agent",
	"human agent who will help you",
	"agent who will help you schedule",
}

// hasBeenSummarized reports whether the qualification summary step already
// happened: an optional field was answered, tour availability was given, or a
// recent history line contains a confirmation phrase.
func hasBeenSummarized(lead models.Lead) bool {
	return lead.HasOptionalAnswer() ||
		lead.HasField(models.FieldTourAvailability) ||
		recentHistoryContains(lead, confirmationPhrases)
}

// hasCompletedOptionalQuestions reports whether the optional-questions phase
// is behind us: an optional field was answered or the handoff announcement
// already appeared in recent history.
func hasCompletedOptionalQuestions(lead models.Lead) bool {
	return lead.HasOptionalAnswer() || recentHistoryContains(lead, agentHandoffPhrases)
}

// recentHistoryContains scans the trailing history window for any of the
// given phrases, case-insensitively. Order of lines does not matter.
func recentHistoryContains(lead models.Lead, phrases []string) bool {
	for _, line := range lead.RecentHistory(models.HistoryWindow) {
		lowered := strings.ToLower(line)
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				return true
			}
		}
	}
	return false
}
