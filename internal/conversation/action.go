// Package conversation implements the decision engine that picks the next
// conversational action for a lead.
//
// Decide is a pure function over an immutable lead snapshot: it performs no
// I/O, never fails on well-formed input, and is safe to call concurrently as
// long as each call gets its own snapshot.
package conversation

import (
	"github.com/CornerstoneRE/LeadLine/internal/delay"
	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// Action enumerates the possible conversation actions. Exactly one is chosen
// per inbound message.
type Action string

const (
	ActionInitialOutreach       Action = "initial_outreach"
	ActionContinueQualification Action = "continue_qualification"
	ActionSummaryConfirmation   Action = "summary_confirmation"
	ActionTransitionToOptional  Action = "transition_to_optional"
	ActionClarifyInformation    Action = "clarify_information"
	ActionAcknowledgeDelay      Action = "acknowledge_delay"
	ActionGentleRedirect        Action = "gentle_redirect"
	ActionRequestAvailability   Action = "request_availability"
	ActionReadyForAgent         Action = "ready_for_agent"
	ActionFollowUpCheckIn       Action = "follow_up_check_in"
)

// Decision is the closed set of action variants. Each variant carries only
// the context its message rendering needs.
type Decision interface {
	Action() Action
}

// InitialOutreach greets a brand-new lead with no conversation history.
type InitialOutreach struct {
	LeadName string
}

// ContinueQualification keeps collecting the missing required fields.
type ContinueQualification struct {
	Known          string
	StillNeeded    string
	NextQuestions  []string
	NewlyExtracted map[string]string
	ProgressNote   string
}

// SummaryConfirmation plays back the collected qualification for the lead to
// confirm, the first time all required fields are present.
type SummaryConfirmation struct {
	Summary        string
	ProgressNote   string
	NewlyExtracted map[string]string
}

// TransitionToOptional moves a confirmed lead into the optional questions.
type TransitionToOptional struct {
	OptionalFields []string
	ProgressNote   string
	NewlyExtracted map[string]string
}

// ClarifyInformation asks the lead to restate an ambiguous partial answer.
type ClarifyInformation struct {
	UnclearField string
	Request      string
	Confidence   float64
}

// AcknowledgeDelay confirms a postponement request.
type AcknowledgeDelay struct {
	DelayDays int
	DelayType delay.Type
}

// GentleRedirect steers an off-topic conversation back to qualification.
type GentleRedirect struct {
	Known       string
	StillNeeded string
}

// RequestAvailability asks a fully qualified lead when they can tour.
type RequestAvailability struct {
	Summary string
}

// ReadyForAgent hands the lead off to the human agent. The orchestrator must
// persist tour_ready and notify the agent exactly once when
// ShouldMarkTourReady is set.
type ReadyForAgent struct {
	ShouldMarkTourReady bool
}

// FollowUpCheckIn is a scheduled nudge from the follow-up sweep; it is never
// produced by Decide.
type FollowUpCheckIn struct {
	Stage models.FollowUpStage
}

func (InitialOutreach) Action() Action       { return ActionInitialOutreach }
func (ContinueQualification) Action() Action { return ActionContinueQualification }
func (SummaryConfirmation) Action() Action   { return ActionSummaryConfirmation }
func (TransitionToOptional) Action() Action  { return ActionTransitionToOptional }
func (ClarifyInformation) Action() Action    { return ActionClarifyInformation }
func (AcknowledgeDelay) Action() Action      { return ActionAcknowledgeDelay }
func (GentleRedirect) Action() Action        { return ActionGentleRedirect }
func (RequestAvailability) Action() Action   { return ActionRequestAvailability }
func (ReadyForAgent) Action() Action         { return ActionReadyForAgent }
func (FollowUpCheckIn) Action() Action       { return ActionFollowUpCheckIn }
