// Package reply renders outbound SMS text for conversation decisions.
//
// Rendering goes through the LLM for natural phrasing, with a deterministic
// fallback per action so a model outage never leaves a lead without an
// answer.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/CornerstoneRE/LeadLine/internal/conversation"
	"github.com/CornerstoneRE/LeadLine/internal/delay"
	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// FallbackReply is sent when a message cannot be processed at all.
const FallbackReply = "Thanks for your message. Our agent will follow up with you soon."

// maxReplyLength truncates runaway completions to a sane SMS size.
const maxReplyLength = 640

const systemPrompt = `You are a friendly leasing assistant texting with a prospective tenant about Boston apartment rentals.
Write exactly one SMS reply. Keep it to one or two short sentences, warm and professional, no emojis, no sign-off.`

// Generator is the LLM dependency, satisfied by *genai.Client.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Renderer turns decisions into outbound SMS text.
type Renderer struct {
	gen Generator
}

// NewRenderer creates a renderer. A nil generator skips the LLM and always
// uses the deterministic texts.
func NewRenderer(gen Generator) *Renderer {
	return &Renderer{gen: gen}
}

// Render produces the SMS body for a decision. It never fails; LLM errors and
// unusable completions fall back to Fallback.
func (r *Renderer) Render(ctx context.Context, d conversation.Decision, lead models.Lead) string {
	if r.gen == nil {
		return Fallback(d, lead)
	}
	text, err := r.gen.Generate(ctx, systemPrompt, instruction(d, lead))
	if err != nil {
		slog.Warn("Reply.Render: generation failed, using fallback",
			"action", d.Action(), "error", err)
		return Fallback(d, lead)
	}
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if text == "" {
		slog.Warn("Reply.Render: empty completion, using fallback", "action", d.Action())
		return Fallback(d, lead)
	}
	if len(text) > maxReplyLength {
		// Back up to a rune boundary so the cut never splits a multibyte
		// character.
		cut := maxReplyLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// instruction builds the per-action prompt for the model.
func instruction(d conversation.Decision, lead models.Lead) string {
	var b strings.Builder
	switch v := d.(type) {
	case conversation.InitialOutreach:
		b.WriteString("This is your first message to the lead")
		if v.LeadName != "" {
			fmt.Fprintf(&b, " (their name is %s)", v.LeadName)
		}
		b.WriteString(". Introduce yourself briefly and ask what they are looking for in their next apartment.")
	case conversation.ContinueQualification:
		if v.ProgressNote != "" {
			fmt.Fprintf(&b, "Acknowledge what they just told you: %s\n", v.ProgressNote)
		}
		fmt.Fprintf(&b, "Ask about: %s.", strings.Join(v.NextQuestions, " and "))
	case conversation.SummaryConfirmation:
		fmt.Fprintf(&b, "Recap their requirements and ask them to confirm: %s", v.Summary)
	case conversation.TransitionToOptional:
		b.WriteString("Their requirements are confirmed. Ask one light follow-up question about ")
		b.WriteString(optionalQuestionTopic(v.OptionalFields))
		b.WriteString(".")
	case conversation.ClarifyInformation:
		fmt.Fprintf(&b, "Their last answer was unclear. Politely ask again: %s", v.Request)
	case conversation.AcknowledgeDelay:
		fmt.Fprintf(&b, "They asked you to follow up later. Confirm you will reach out in %s and wish them well.", delayPhrase(v))
	case conversation.GentleRedirect:
		fmt.Fprintf(&b, "Their message was off-topic. Respond briefly, then steer back to their apartment search. Still needed: %s.", v.StillNeeded)
	case conversation.RequestAvailability:
		fmt.Fprintf(&b, "Everything is collected (%s). Ask when they are available for a tour.", v.Summary)
	case conversation.ReadyForAgent:
		b.WriteString("Tell them you are ready to send your information to my human agent who will help you schedule a tour, and that the agent will text them shortly.")
	case conversation.FollowUpCheckIn:
		fmt.Fprintf(&b, "This is a %s follow-up check-in. Gently ask if they are still looking for an apartment.", v.Stage)
	default:
		b.WriteString("Thank them for their message and let them know an agent will follow up.")
	}
	return b.String()
}

// Fallback returns the deterministic reply for a decision.
func Fallback(d conversation.Decision, lead models.Lead) string {
	switch v := d.(type) {
	case conversation.InitialOutreach:
		greeting := "Hi!"
		if v.LeadName != "" {
			greeting = "Hi " + v.LeadName + "!"
		}
		return greeting + " I'm the leasing assistant at Cornerstone Real Estate. What are you looking for in your next apartment?"
	case conversation.ContinueQualification:
		ask := "Could you tell me your " + strings.Join(v.NextQuestions, " and ") + "?"
		if v.ProgressNote != "" {
			return v.ProgressNote + " " + ask
		}
		return ask
	case conversation.SummaryConfirmation:
		return "Here's what I have so far: " + v.Summary + ". Does that look right?"
	case conversation.TransitionToOptional:
		return "Great, thanks for confirming! One more thing: " + optionalQuestion(v.OptionalFields)
	case conversation.ClarifyInformation:
		return v.Request
	case conversation.AcknowledgeDelay:
		return "No problem! I'll check back in " + delayPhrase(v) + "."
	case conversation.GentleRedirect:
		return "Happy to help with your apartment search! Could you tell me your " + strings.ToLower(v.StillNeeded) + "?"
	case conversation.RequestAvailability:
		return "You're all set: " + v.Summary + ". When are you available for a tour?"
	case conversation.ReadyForAgent:
		return "Perfect! I'm ready to send your information to my human agent who will help you schedule a tour. They'll text you shortly."
	case conversation.FollowUpCheckIn:
		return "Hi! Just checking in on your apartment search. Still looking?"
	default:
		return FallbackReply
	}
}

func delayPhrase(v conversation.AcknowledgeDelay) string {
	if v.DelayType == delay.TypeSpecific && v.DelayDays == 1 {
		return "a day"
	}
	if v.DelayType == delay.TypeSpecific {
		return fmt.Sprintf("%d days", v.DelayDays)
	}
	return "about a week"
}

func optionalQuestionTopic(fields []string) string {
	if len(fields) > 0 && fields[0] == models.FieldBostonRentalExperience {
		return "whether they have rented in Boston before"
	}
	return "how soon they need to move"
}

func optionalQuestion(fields []string) string {
	if len(fields) > 0 && fields[0] == models.FieldBostonRentalExperience {
		return "have you rented in Boston before?"
	}
	return "how soon do you need to move?"
}
