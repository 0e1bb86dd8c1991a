package conversation

import (
	"testing"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

func TestHasBeenSummarized(t *testing.T) {
	tests := []struct {
		name string
		lead models.Lead
		want bool
	}{
		{"blank lead", models.Lead{}, false},
		{"optional answered", models.Lead{RentalUrgency: "asap"}, true},
		{"availability given", models.Lead{TourAvailability: "weekends"}, true},
		{
			"confirmation in history",
			models.Lead{ChatHistory: "2024-01-01 10:00:00 - Lead: sounds good to me"},
			true,
		},
		{
			"uppercase confirmation",
			models.Lead{ChatHistory: "2024-01-01 10:00:00 - Lead: LOOKS GOOD"},
			true,
		},
		{
			"unrelated chatter",
			models.Lead{ChatHistory: "2024-01-01 10:00:00 - Lead: still thinking it over"},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasBeenSummarized(tt.lead); got != tt.want {
				t.Errorf("hasBeenSummarized = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasCompletedOptionalQuestions(t *testing.T) {
	if hasCompletedOptionalQuestions(models.Lead{}) {
		t.Error("blank lead reported optional questions complete")
	}
	if !hasCompletedOptionalQuestions(models.Lead{BostonRentalExperience: "renewing"}) {
		t.Error("answered optional field not recognized")
	}
	lead := models.Lead{
		ChatHistory: "2024-01-01 10:00:00 - AI: I'm ready to send your information to my human agent",
	}
	if !hasCompletedOptionalQuestions(lead) {
		t.Error("handoff announcement in history not recognized")
	}
}

func TestRecentHistoryContainsOnlyScansWindow(t *testing.T) {
	lines := make([]string, 0, models.HistoryWindow+1)
	lines = append(lines, "2024-01-01 10:00:00 - Lead: looks good")
	for i := 0; i < models.HistoryWindow; i++ {
		lines = append(lines, "2024-01-01 11:00:00 - Lead: filler")
	}
	lead := models.Lead{ChatHistory: joinLines(lines)}
	if recentHistoryContains(lead, confirmationPhrases) {
		t.Error("phrase outside the trailing window was matched")
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
