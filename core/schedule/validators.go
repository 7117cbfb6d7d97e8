package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lingora/backend/core"
)

var (
	eventTypeTag  = "eventtype"
	eventTypeText = "invalid event type"

	timeOrderTag  = "timeorder"
	timeOrderText = "end_time must be after start_time"
)

// RegisterValidators registers the schedule validation tags and struct-level
// validations on the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(eventTypeTag, eventTypeValidation)
	core.RegisterCustomTranslation(validate, translator, eventTypeTag, eventTypeText)

	validate.RegisterStructValidation(eventStructValidation, NewEvent{})
	validate.RegisterStructValidation(eventStructValidation, UpdateEvent{})
	core.RegisterCustomTranslation(validate, translator, timeOrderTag, timeOrderText)
}

// eventTypeValidation checks that the provided event type is known.
func eventTypeValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, t := range EventTypes {
		if t == val {
			return true
		}
	}
	return false
}

// eventStructValidation enforces start < end on event payloads. Format errors
// are left to the `timehm` field tags; ordering is only checked when both
// times parse.
func eventStructValidation(sl validator.StructLevel) {
	var start, end string
	switch ev := sl.Current().Interface().(type) {
	case NewEvent:
		start, end = ev.StartTime, ev.EndTime
	case UpdateEvent:
		start, end = ev.StartTime, ev.EndTime
	}

	startMin, err := MinutesOfDay(start)
	if err != nil {
		return
	}
	endMin, err := MinutesOfDay(end)
	if err != nil {
		return
	}
	if endMin <= startMin {
		sl.ReportError(end, "end_time", "EndTime", timeOrderTag, "")
	}
}
