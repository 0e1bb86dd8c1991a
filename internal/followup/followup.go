// Package followup drives the scheduled re-engagement of quiet leads.
package followup

import (
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// MaxFollowUps caps how many check-ins a lead receives.
const MaxFollowUps = 5

// Step is one entry in the follow-up cadence. Days counts from the first
// scheduled follow-up, so consecutive steps yield the waiting interval.
type Step struct {
	Days  int
	Stage models.FollowUpStage
}

// Schedule is the fixed follow-up cadence.
var Schedule = []Step{
	{Days: 1, Stage: models.FollowUpStageFirst},
	{Days: 3, Stage: models.FollowUpStageSecond},
	{Days: 5, Stage: models.FollowUpStageThird},
	{Days: 7, Stage: models.FollowUpStageFourth},
	{Days: 10, Stage: models.FollowUpStageFinal},
}

// Messages holds the check-in text per stage.
var Messages = map[models.FollowUpStage]string{
	models.FollowUpStageFirst:  "Hi again! Just wanted to see how your apartment search is going. Anything I can help with?",
	models.FollowUpStageSecond: "Checking in - are you still looking for an apartment? I'd love to help you find the right place.",
	models.FollowUpStageThird:  "Hi! New listings come up all the time. Want me to keep an eye out for anything specific?",
	models.FollowUpStageFourth: "Still thinking about your move? Happy to pick up where we left off whenever you're ready.",
	models.FollowUpStageFinal:  "This will be my last check-in. If you'd like help with your apartment search down the road, just text me back!",
}

// NextStep returns the step to send for a lead that has already received
// count check-ins. The second return is false once the cadence is exhausted.
func NextStep(count int) (Step, bool) {
	if count < 0 || count >= len(Schedule) || count >= MaxFollowUps {
		return Step{}, false
	}
	return Schedule[count], true
}

// NextTime computes when the step after the one at index should fire,
// relative to now. Returns nil after the last step.
func NextTime(index int, now time.Time) *time.Time {
	if index+1 >= len(Schedule) {
		return nil
	}
	interval := Schedule[index+1].Days - Schedule[index].Days
	t := now.AddDate(0, 0, interval)
	return &t
}
