package store

import (
	"database/sql"
	"fmt"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// leadColumns is the canonical column list shared by every SELECT. Scan order
// in scanLead must match.
const leadColumns = `phone, name, email, move_in_date, price, beds, baths, location, amenities,
	rental_urgency, boston_rental_experience, tour_availability, tour_ready,
	follow_up_count, follow_up_stage, next_follow_up_time, follow_up_paused_until,
	chat_history, created_at, updated_at, last_contacted`

// updatableLeadColumns whitelists the columns UpdateLead may touch. The field
// name constants double as column names.
var updatableLeadColumns = map[string]bool{
	models.FieldName:                   true,
	models.FieldEmail:                  true,
	models.FieldMoveInDate:             true,
	models.FieldPrice:                  true,
	models.FieldBeds:                   true,
	models.FieldBaths:                  true,
	models.FieldLocation:               true,
	models.FieldAmenities:              true,
	models.FieldRentalUrgency:          true,
	models.FieldBostonRentalExperience: true,
	models.FieldTourAvailability:       true,
}

// rowScanner abstracts sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanLead reads one lead row in leadColumns order.
func scanLead(row rowScanner) (models.Lead, error) {
	var l models.Lead
	var name, email, moveIn, price, beds, baths, location, amenities sql.NullString
	var urgency, experience, availability, stage, history sql.NullString
	var nextFollowUp, pausedUntil, lastContacted sql.NullTime

	err := row.Scan(
		&l.Phone, &name, &email, &moveIn, &price, &beds, &baths, &location, &amenities,
		&urgency, &experience, &availability, &l.TourReady,
		&l.FollowUpCount, &stage, &nextFollowUp, &pausedUntil,
		&history, &l.CreatedAt, &l.UpdatedAt, &lastContacted,
	)
	if err != nil {
		return l, err
	}
	l.Name = name.String
	l.Email = email.String
	l.MoveInDate = moveIn.String
	l.Price = price.String
	l.Beds = beds.String
	l.Baths = baths.String
	l.Location = location.String
	l.Amenities = amenities.String
	l.RentalUrgency = urgency.String
	l.BostonRentalExperience = experience.String
	l.TourAvailability = availability.String
	l.FollowUpStage = models.FollowUpStage(stage.String)
	l.ChatHistory = history.String
	if nextFollowUp.Valid {
		t := nextFollowUp.Time
		l.NextFollowUpTime = &t
	}
	if pausedUntil.Valid {
		t := pausedUntil.Time
		l.FollowUpPausedUntil = &t
	}
	if lastContacted.Valid {
		t := lastContacted.Time
		l.LastContacted = &t
	}
	return l, nil
}

// nilIfEmpty returns nil for empty strings, for nullable columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// validateUpdateFields rejects unknown column names before they reach SQL.
func validateUpdateFields(fields map[string]string) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}
	for name := range fields {
		if !updatableLeadColumns[name] {
			return fmt.Errorf("unknown lead field %q", name)
		}
	}
	return nil
}
