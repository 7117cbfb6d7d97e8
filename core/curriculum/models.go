package curriculum

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
)

// ReinforcementWeekMin is the first week number reserved for out-of-sequence
// remedial weeks; they never take part in sequential unlocking.
const ReinforcementWeekMin = 100

// Topic statuses
const (
	StatusNotStarted  = "not_started"
	StatusInProgress  = "in_progress"
	StatusNeedsReview = "needs_review"
	StatusCompleted   = "completed"
)

var TopicStatuses = []string{StatusNotStarted, StatusInProgress, StatusNeedsReview, StatusCompleted}

// Topic colors: a finer-grained evaluation tag orthogonal to status.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorOrange = "orange"
	ColorBlue   = "blue"
	ColorPurple = "purple"
	ColorRed    = "red"
)

var TopicColors = []string{ColorGreen, ColorYellow, ColorOrange, ColorBlue, ColorPurple, ColorRed}

// awardColors are the colors that grant points the first time they are set.
var awardColors = map[string]bool{ColorGreen: true, ColorPurple: true}

// AwardPoints is the one-time point grant for a green or purple evaluation.
const AwardPoints = 10

func isAwardColor(color string) bool { return awardColors[color] }

// ProgramWeek is one week of static curriculum content for a level.
type ProgramWeek struct {
	ID          string      `json:"id"`
	WeekNumber  int         `json:"week_number"`
	Level       string      `json:"level"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// IsReinforcement reports whether the week sits in the reserved remedial range.
func (w ProgramWeek) IsReinforcement() bool { return w.WeekNumber >= ReinforcementWeekMin }

// WeekTopic belongs to exactly one ProgramWeek.
type WeekTopic struct {
	ID          string      `json:"id"`
	WeekID      string      `json:"week_id"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	OrderNumber int         `json:"order_number"`
}

// TopicProgress is a student's progress on one topic; the row is created
// lazily on the first status or color change.
type TopicProgress struct {
	ID        string      `json:"id"`
	StudentID string      `json:"student_id"`
	TopicID   string      `json:"topic_id"`
	Status    string      `json:"status"`
	Color     null.String `json:"color"`
	UpdatedAt time.Time   `json:"updated_at"` // UTC
}

// WeekProgress marks a student's completion of one week number.
type WeekProgress struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	WeekNumber  int    `json:"week_number"`
	IsCompleted bool   `json:"is_completed"`
}

// NewWeek contains information needed to create a new ProgramWeek.
type NewWeek struct {
	WeekNumber  int    `json:"week_number" validate:"min=1"`
	Level       string `json:"level" validate:"required,level"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (nw *NewWeek) Validate(validate *validator.Validate) error {
	nw.Title = core.CleanString(nw.Title)
	return validate.Struct(nw)
}

// UpdateWeek defines what information may be provided to modify an existing
// ProgramWeek. Zero-valued fields keep the stored value.
type UpdateWeek struct {
	WeekNumber  *int   `json:"week_number" validate:"omitempty,min=1"`
	Level       string `json:"level" validate:"omitempty,level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (uw *UpdateWeek) Validate(validate *validator.Validate, orig ProgramWeek) error {
	if uw.WeekNumber == nil {
		uw.WeekNumber = &orig.WeekNumber
	}
	if uw.Level == "" {
		uw.Level = orig.Level
	}
	if title := core.CleanString(uw.Title); title != "" {
		uw.Title = title
	} else {
		uw.Title = orig.Title
	}
	return validate.Struct(uw)
}

// NewTopic contains information needed to create a new WeekTopic.
type NewTopic struct {
	WeekID      string `json:"week_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	OrderNumber int    `json:"order_number" validate:"min=0"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

// SetTopicStatus is the payload for a staff status change on one topic.
type SetTopicStatus struct {
	StudentID string `json:"student_id" validate:"required"`
	TopicID   string `json:"topic_id" validate:"required"`
	Status    string `json:"status" validate:"required,topicstatus"`
}

func (st SetTopicStatus) Validate(validate *validator.Validate) error { return validate.Struct(st) }

// SetTopicColor is the payload for a staff color change on one topic.
type SetTopicColor struct {
	StudentID string `json:"student_id" validate:"required"`
	TopicID   string `json:"topic_id" validate:"required"`
	Color     string `json:"color" validate:"required,topiccolor"`
}

func (sc SetTopicColor) Validate(validate *validator.Validate) error { return validate.Struct(sc) }

// WeekOverview is one week of a student's curriculum overview.
type WeekOverview struct {
	Week   ProgramWeek `json:"week"`
	Status WeekStatus  `json:"status"`
	Topics []WeekTopic `json:"topics,omitempty"`
}

// ReinforcementOverview is one remedial week, gated only by its own
// completion flag.
type ReinforcementOverview struct {
	Week        ProgramWeek `json:"week"`
	IsCompleted bool        `json:"is_completed"`
	Topics      []WeekTopic `json:"topics,omitempty"`
}

// Overview is a student's full curriculum state: the sequentially unlocked
// weeks plus the separate reinforcement section.
type Overview struct {
	Level         string                  `json:"level"`
	CurrentWeek   int                     `json:"current_week"`
	Weeks         []WeekOverview          `json:"weeks"`
	Reinforcement []ReinforcementOverview `json:"reinforcement"`
	Points        int                     `json:"points"`
}
