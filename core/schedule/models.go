package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
)

// Event types
const (
	EventClass    = "class"
	EventTutoring = "tutoring"
	EventTest     = "test"
	EventMeeting  = "meeting"
)

var EventTypes = []string{EventClass, EventTutoring, EventTest, EventMeeting}

// AvailabilityRange is a persisted weekly availability stretch for a staff
// member. All ranges for an owner are replaced wholesale on every save.
type AvailabilityRange struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Day       int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (ar AvailabilityRange) TimeRange() TimeRange {
	return TimeRange{Day: ar.Day, StartTime: ar.StartTime, EndTime: ar.EndTime}
}

// Event is a weekly-recurring schedule entry; it occupies one day of the
// week and is not tied to calendar dates.
type Event struct {
	ID         string      `json:"id"`
	Day        int         `json:"day_of_week"`
	StartTime  string      `json:"start_time"`
	EndTime    string      `json:"end_time"`
	Type       string      `json:"event_type"`
	Title      string      `json:"title"`
	Level      null.String `json:"level"`
	Room       null.String `json:"room"`
	Teacher1ID null.String `json:"teacher1_id"`
	Teacher2ID null.String `json:"teacher2_id"`
	Tutor1ID   null.String `json:"tutor1_id"`
	Tutor2ID   null.String `json:"tutor2_id"`
	Details    null.String `json:"details"`
	Attachment null.String `json:"attachment"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Day        int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime  string `json:"start_time" validate:"required,timehm"`
	EndTime    string `json:"end_time" validate:"required,timehm"`
	Type       string `json:"event_type" validate:"required,eventtype"`
	Title      string `json:"title" validate:"required"`
	Level      string `json:"level" validate:"omitempty,level"`
	Room       string `json:"room"`
	Teacher1ID string `json:"teacher1_id"`
	Teacher2ID string `json:"teacher2_id"`
	Tutor1ID   string `json:"tutor1_id"`
	Tutor2ID   string `json:"tutor2_id"`
	Details    string `json:"details"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Room = core.CleanString(ne.Room)
	return validate.Struct(ne)
}

// UpdateEvent defines what information may be provided to modify an existing Event.
// Zero-valued fields keep the stored value.
type UpdateEvent struct {
	Day        *int   `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime  string `json:"start_time" validate:"omitempty,timehm"`
	EndTime    string `json:"end_time" validate:"omitempty,timehm"`
	Type       string `json:"event_type" validate:"omitempty,eventtype"`
	Title      string `json:"title"`
	Level      string `json:"level" validate:"omitempty,level"`
	Room       string `json:"room"`
	Teacher1ID string `json:"teacher1_id"`
	Teacher2ID string `json:"teacher2_id"`
	Tutor1ID   string `json:"tutor1_id"`
	Tutor2ID   string `json:"tutor2_id"`
	Details    string `json:"details"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate, orig Event) error {
	if ue.Day == nil {
		ue.Day = &orig.Day
	}
	if ue.StartTime == "" {
		ue.StartTime = orig.StartTime
	}
	if ue.EndTime == "" {
		ue.EndTime = orig.EndTime
	}
	if ue.Type == "" {
		ue.Type = orig.Type
	}
	if title := core.CleanString(ue.Title); title != "" {
		ue.Title = title
	} else {
		ue.Title = orig.Title
	}
	return validate.Struct(ue)
}

// QuickCreate is the payload of a drag-to-create gesture: the two corners of
// the rectangular selection plus the event fields shared by the created
// events. One event is created per day in the selected day range, all
// spanning the selected hour range.
type QuickCreate struct {
	Anchor Slot   `json:"anchor"`
	Cursor Slot   `json:"cursor"`
	Type   string `json:"event_type" validate:"required,eventtype"`
	Title  string `json:"title" validate:"required"`
	Level  string `json:"level" validate:"omitempty,level"`
	Room   string `json:"room"`
}

func (qc *QuickCreate) Validate(validate *validator.Validate) error {
	qc.Title = core.CleanString(qc.Title)
	qc.Room = core.CleanString(qc.Room)
	return validate.Struct(qc)
}

// Assignment links a student to a recurring event. Assignments are never
// deleted; they are deactivated to preserve history.
type Assignment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	EventID   string    `json:"event_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewAssignment contains information needed to assign a student to an event.
type NewAssignment struct {
	StudentID string `json:"student_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
}

func (na NewAssignment) Validate(validate *validator.Validate) error { return validate.Struct(na) }

// EventFilter narrows event queries; fields combine with AND.
type EventFilter struct {
	Day   *int   `query:"day_of_week"`
	Type  string `query:"event_type"`
	Level string `query:"level"`
	Room  string `query:"room"`
}

func (ef *EventFilter) IsEmpty() bool {
	return ef.Day == nil && ef.Type == "" && ef.Level == "" && ef.Room == ""
}

// AssignmentFilter narrows assignment queries; fields combine with AND.
type AssignmentFilter struct {
	StudentID  string `query:"student_id"`
	EventID    string `query:"event_id"`
	ActiveOnly bool   `query:"active_only"`
}

// EventLayout is an Event decorated with its overlay position on the grid,
// as consumed by calendar rendering.
type EventLayout struct {
	Event     Event `json:"event"`
	TopOffset int   `json:"top_offset"`
	Height    int   `json:"height"`
}
