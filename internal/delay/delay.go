// Package delay classifies inbound messages that ask to postpone contact.
//
// Detection is keyword and regex based so results are reproducible: a fixed
// keyword set gates detection, then an ordered pattern list extracts an
// explicit duration. Messages that read like tour-availability answers are
// excluded up front so a scheduling reply is never mistaken for a brush-off.
package delay

import (
	"regexp"
	"strings"
	"time"
)

// Type describes how the delay duration was determined.
type Type string

const (
	// TypeSpecific means an explicit duration was extracted from the message.
	TypeSpecific Type = "specific"
	// TypeGeneral means postponement intent was detected without a duration.
	TypeGeneral Type = "general"
	// TypeDefault is the zero-information fallback classification.
	TypeDefault Type = "default"
)

// DefaultDelayDays is used when a delay keyword matches but no duration does.
const DefaultDelayDays = 7

// Day-count heuristics for vague quantities. Fixed constants, not computed.
const (
	fewDays    = 3
	coupleDays = 2
	fewWeeks   = 14
)

// Info is the result of a positive delay detection.
type Info struct {
	DelayDays    int    `json:"delay_days"`
	DelayType    Type   `json:"delay_type"`
	OriginalText string `json:"original_text"`
}

// delayKeywords gate detection: without one of these, the message is not a
// postponement request no matter what durations it mentions.
var delayKeywords = []string{
	"give me", "call me", "contact me", "reach out", "check back", "follow up",
	"not ready", "too early", "not yet", "later", "busy", "wait",
	"days", "weeks", "months", "day", "week", "month",
	"next week", "next month", "in a week", "in a month", "few days", "few weeks",
}

// availabilityKeywords suppress detection: a message about when the lead can
// tour is a scheduling answer, not a postponement.
var availabilityKeywords = []string{
	"weekend", "weekday",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"morning", "afternoon", "evening",
	"available", "availability", "tour", "anytime", "any time",
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

const unitDays = `(day|week|month)`

// quantityPattern matches an explicit count plus unit, digits or spelled out.
var quantityPattern = regexp.MustCompile(`(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\s+` + unitDays + `s?\b`)

// idiomPatterns are evaluated in declaration order after quantityPattern;
// first match wins.
var idiomPatterns = []struct {
	re   *regexp.Regexp
	days int
}{
	{regexp.MustCompile(`next week|in a week`), 7},
	{regexp.MustCompile(`next month|in a month`), 30},
	{regexp.MustCompile(`(a\s+)?few\s+days`), fewDays},
	{regexp.MustCompile(`(a\s+)?couple(\s+of)?\s+days`), coupleDays},
	{regexp.MustCompile(`(a\s+)?(few|couple)(\s+of)?\s+weeks`), fewWeeks},
}

func unitToDays(unit string) int {
	switch unit {
	case "week":
		return 7
	case "month":
		return 30
	default:
		return 1
	}
}

// Detect classifies message as a postponement request. It returns nil when no
// delay intent is found, including when the message reads like a scheduling
// answer. Detection is total and idempotent.
func Detect(message string) *Info {
	lowered := strings.ToLower(message)

	for _, kw := range availabilityKeywords {
		if strings.Contains(lowered, kw) {
			return nil
		}
	}

	found := false
	for _, kw := range delayKeywords {
		if strings.Contains(lowered, kw) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	if m := quantityPattern.FindStringSubmatch(lowered); m != nil {
		count, ok := wordNumbers[m[1]]
		if !ok {
			count = parseDigits(m[1])
		}
		return &Info{
			DelayDays:    count * unitToDays(m[2]),
			DelayType:    TypeSpecific,
			OriginalText: message,
		}
	}

	for _, p := range idiomPatterns {
		if p.re.MatchString(lowered) {
			return &Info{
				DelayDays:    p.days,
				DelayType:    TypeSpecific,
				OriginalText: message,
			}
		}
	}

	return &Info{
		DelayDays:    DefaultDelayDays,
		DelayType:    TypeGeneral,
		OriginalText: message,
	}
}

// ResumeTime computes when automated contact should resume.
func ResumeTime(info Info, now time.Time) time.Time {
	return now.AddDate(0, 0, info.DelayDays)
}

func parseDigits(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
