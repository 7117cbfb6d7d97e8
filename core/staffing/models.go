package staffing

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lingora/backend/core"
)

// Hour entry kinds
const (
	KindClass    = "class"
	KindTutoring = "tutoring"
	KindPrep     = "prep"
)

var EntryKinds = []string{KindClass, KindTutoring, KindPrep}

// HourEntry is one logged block of paid work for a staff member.
type HourEntry struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	Date      time.Time `json:"date"` // UTC, time part ignored
	Hours     float64   `json:"hours"`
	Kind      string    `json:"kind"`
	Rate      float64   `json:"rate"` // hourly, in the school's currency
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Amount is the entry's earned amount.
func (e HourEntry) Amount() float64 { return e.Hours * e.Rate }

// NewHourEntry contains information needed to log hours.
type NewHourEntry struct {
	StaffID string    `json:"staff_id" validate:"required"`
	Date    time.Time `json:"date" validate:"required"`
	Hours   float64   `json:"hours" validate:"gt=0,lte=24"`
	Kind    string    `json:"kind" validate:"required,entrykind"`
	Rate    float64   `json:"rate" validate:"gte=0"`
	Notes   string    `json:"notes"`
}

func (ne *NewHourEntry) Validate(validate *validator.Validate) error {
	ne.Notes = core.CleanString(ne.Notes)
	return validate.Struct(ne)
}

// QueryFilter narrows hour entry lookups. Zero-valued fields are skipped.
type QueryFilter struct {
	StaffID string
	Year    int
	Month   time.Month
	Kind    string
}

// KindSummary totals one kind of work within a summary period.
type KindSummary struct {
	Kind   string  `json:"kind"`
	Hours  float64 `json:"hours"`
	Amount float64 `json:"amount"`
}

// EarningsSummary is one staff member's totals for a month.
type EarningsSummary struct {
	StaffID    string        `json:"staff_id"`
	StaffName  string        `json:"staff_name,omitempty"`
	Year       int           `json:"year"`
	Month      time.Month    `json:"month"`
	Kinds      []KindSummary `json:"kinds"`
	TotalHours float64       `json:"total_hours"`
	TotalOwed  float64       `json:"total_owed"`
}
