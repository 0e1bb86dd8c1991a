// Package models defines the core data structures for LeadLine.
//
// It includes the lead qualification record, inbound webhook events, and the
// API response envelopes shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Canonical qualification field names. These double as extraction keys and
// database column names, so they must stay in sync with the store migrations.
const (
	FieldMoveInDate              = "move_in_date"
	FieldPrice                   = "price"
	FieldBeds                    = "beds"
	FieldBaths                   = "baths"
	FieldLocation                = "location"
	FieldAmenities               = "amenities"
	FieldRentalUrgency           = "rental_urgency"
	FieldBostonRentalExperience  = "boston_rental_experience"
	FieldTourAvailability        = "tour_availability"
	FieldName                    = "name"
	FieldEmail                   = "email"
)

// RequiredFields lists the six qualification fields in declaration order.
// Missing-field reporting preserves this order.
var RequiredFields = []string{
	FieldMoveInDate,
	FieldPrice,
	FieldBeds,
	FieldBaths,
	FieldLocation,
	FieldAmenities,
}

// OptionalFields lists the optional qualification fields in declaration order.
var OptionalFields = []string{
	FieldRentalUrgency,
	FieldBostonRentalExperience,
}

// FieldLabels maps field names to the human phrasing used in outbound messages.
var FieldLabels = map[string]string{
	FieldMoveInDate:             "move-in date",
	FieldPrice:                  "budget",
	FieldBeds:                   "bedrooms",
	FieldBaths:                  "bathrooms",
	FieldLocation:               "preferred area",
	FieldAmenities:              "amenities",
	FieldRentalUrgency:          "rental urgency",
	FieldBostonRentalExperience: "rental experience",
	FieldTourAvailability:       "tour availability",
}

// FollowUpStage identifies a step in the follow-up schedule.
type FollowUpStage string

const (
	FollowUpStageScheduled FollowUpStage = "scheduled"
	FollowUpStageFirst     FollowUpStage = "first"
	FollowUpStageSecond    FollowUpStage = "second"
	FollowUpStageThird     FollowUpStage = "third"
	FollowUpStageFourth    FollowUpStage = "fourth"
	FollowUpStageFinal     FollowUpStage = "final"
)

// Chat history sender labels.
const (
	SenderLead = "Lead"
	SenderBot  = "AI"
)

// HistoryWindow is the number of trailing chat-history lines scanned by the
// conversation heuristics.
const HistoryWindow = 5

// ErrMissingPhone indicates a lead was constructed without a phone number.
// This is a programming error, not a recoverable condition.
var ErrMissingPhone = errors.New("lead phone number is required")

// Lead is the qualification record for one phone number.
type Lead struct {
	Phone string `json:"phone"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	MoveInDate string `json:"move_in_date,omitempty"`
	Price      string `json:"price,omitempty"`
	Beds       string `json:"beds,omitempty"`
	Baths      string `json:"baths,omitempty"`
	Location   string `json:"location,omitempty"`
	Amenities  string `json:"amenities,omitempty"`

	RentalUrgency           string `json:"rental_urgency,omitempty"`
	BostonRentalExperience  string `json:"boston_rental_experience,omitempty"`

	TourAvailability string `json:"tour_availability,omitempty"`
	TourReady        bool   `json:"tour_ready"`

	FollowUpCount       int           `json:"follow_up_count"`
	FollowUpStage       FollowUpStage `json:"follow_up_stage"`
	NextFollowUpTime    *time.Time    `json:"next_follow_up_time,omitempty"`
	FollowUpPausedUntil *time.Time    `json:"follow_up_paused_until,omitempty"`

	ChatHistory string `json:"chat_history,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastContacted *time.Time `json:"last_contacted,omitempty"`
}

// NewLead creates a lead with defaults applied. Returns ErrMissingPhone when
// the phone number is empty.
func NewLead(phone string) (Lead, error) {
	if strings.TrimSpace(phone) == "" {
		return Lead{}, ErrMissingPhone
	}
	now := time.Now().UTC()
	return Lead{
		Phone:         phone,
		FollowUpStage: FollowUpStageScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// present reports whether a stored value counts as an answer: non-empty after
// trimming.
func present(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Field returns the value for a named qualification or contact field. The
// second return is false for unknown field names.
func (l Lead) Field(name string) (string, bool) {
	switch name {
	case FieldMoveInDate:
		return l.MoveInDate, true
	case FieldPrice:
		return l.Price, true
	case FieldBeds:
		return l.Beds, true
	case FieldBaths:
		return l.Baths, true
	case FieldLocation:
		return l.Location, true
	case FieldAmenities:
		return l.Amenities, true
	case FieldRentalUrgency:
		return l.RentalUrgency, true
	case FieldBostonRentalExperience:
		return l.BostonRentalExperience, true
	case FieldTourAvailability:
		return l.TourAvailability, true
	case FieldName:
		return l.Name, true
	case FieldEmail:
		return l.Email, true
	default:
		return "", false
	}
}

// SetField assigns the value for a named field. Unknown names are ignored and
// reported as false.
func (l *Lead) SetField(name, value string) bool {
	switch name {
	case FieldMoveInDate:
		l.MoveInDate = value
	case FieldPrice:
		l.Price = value
	case FieldBeds:
		l.Beds = value
	case FieldBaths:
		l.Baths = value
	case FieldLocation:
		l.Location = value
	case FieldAmenities:
		l.Amenities = value
	case FieldRentalUrgency:
		l.RentalUrgency = value
	case FieldBostonRentalExperience:
		l.BostonRentalExperience = value
	case FieldTourAvailability:
		l.TourAvailability = value
	case FieldName:
		l.Name = value
	case FieldEmail:
		l.Email = value
	default:
		return false
	}
	return true
}

// HasField reports whether the named field holds a present value.
func (l Lead) HasField(name string) bool {
	v, ok := l.Field(name)
	return ok && present(v)
}

// Merge returns a copy of the lead with the extracted values applied on top.
// Blank extracted values are skipped. The receiver is not modified; callers
// use the returned "virtual lead" for decisions while the extraction result
// is persisted separately.
func (l Lead) Merge(extracted map[string]string) Lead {
	merged := l
	for field, value := range extracted {
		if !present(value) {
			continue
		}
		merged.SetField(field, value)
	}
	return merged
}

// IsQualified reports whether all six required fields hold present values.
func (l Lead) IsQualified() bool {
	for _, f := range RequiredFields {
		if !l.HasField(f) {
			return false
		}
	}
	return true
}

// MissingRequiredFields returns the required fields without a present value,
// in declaration order.
func (l Lead) MissingRequiredFields() []string {
	var missing []string
	for _, f := range RequiredFields {
		if !l.HasField(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// MissingOptionalFields returns the optional fields without a present value,
// in declaration order.
func (l Lead) MissingOptionalFields() []string {
	var missing []string
	for _, f := range OptionalFields {
		if !l.HasField(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// HasOptionalAnswer reports whether any optional field has been answered.
func (l Lead) HasOptionalAnswer() bool {
	for _, f := range OptionalFields {
		if l.HasField(f) {
			return true
		}
	}
	return false
}

// NeedsTourAvailability reports whether the lead is qualified, not yet marked
// tour-ready, and has not answered the scheduling question.
func (l Lead) NeedsTourAvailability() bool {
	return l.IsQualified() && !l.TourReady && !present(l.TourAvailability)
}

// RecentHistory returns up to n trailing lines of the chat history.
func (l Lead) RecentHistory(n int) []string {
	if strings.TrimSpace(l.ChatHistory) == "" {
		return nil
	}
	lines := strings.Split(l.ChatHistory, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// HistoryLine formats a single chat-history entry.
func HistoryLine(at time.Time, sender, text string) string {
	return at.UTC().Format("2006-01-02 15:04:05") + " - " + sender + ": " + text
}
