// Package trips implements the travel-day core: trip records, the
// no-overlap invariant, batch CSV validation, and the derived per-trip
// metrics. Persistence is GORM-backed; every operation is scoped to an
// explicit owner identifier supplied by the transport layer.
package trips

import (
	"errors"
	"fmt"
	"time"

	"github.com/daytally/backend/internal/dates"
)

var (
	// ErrDateOrder indicates that a trip's start date falls after its end date.
	ErrDateOrder = errors.New("trips: dateFrom is after dateTo")
	// ErrTripNotFound indicates that a mutation targeted a trip the caller does not own.
	ErrTripNotFound = errors.New("trips: trip not found")
	// ErrMissingUserID indicates an operation was invoked without an owner identifier.
	ErrMissingUserID = errors.New("trips: user identifier is required")
)

// Trip is a user-owned stay in a country over an inclusive date range.
// DateFrom and DateTo are UTC-midnight calendar dates; DateFrom <= DateTo.
// Across one user's trips no two ranges overlap by more than a shared
// boundary day.
type Trip struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null"`
	UserID      string    `gorm:"column:user_id;size:190;not null;index:idx_trips_user_from,priority:1"`
	CountryCode string    `gorm:"column:country_code;size:2;not null"`
	DateFrom    time.Time `gorm:"column:date_from;not null;index:idx_trips_user_from,priority:2"`
	DateTo      time.Time `gorm:"column:date_to;not null"`
	Notes       string    `gorm:"column:notes;type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Trip) TableName() string {
	return "trips"
}

// TripInput carries the raw fields of a single interactive add or edit.
// Country accepts anything the normalizer accepts; the date fields accept
// anything the date parser accepts.
type TripInput struct {
	Country  string
	DateFrom string
	DateTo   string
	Notes    string
}

// ConflictError reports a violation of the no-overlap invariant and carries
// the record the candidate collided with.
type ConflictError struct {
	Conflicting Trip
}

// Error renders the user-facing conflict message with D/M/YYYY dates.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("Trip overlaps with existing %s trip from %s to %s",
		e.Conflicting.CountryCode,
		dates.FormatHuman(e.Conflicting.DateFrom),
		dates.FormatHuman(e.Conflicting.DateTo))
}
