package curriculum

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lingora/backend/core"
)

var (
	topicStatusTag  = "topicstatus"
	topicStatusText = "{0} is not a valid topic status"

	topicColorTag  = "topiccolor"
	topicColorText = "{0} is not a valid topic color"
)

// RegisterValidators registers the curriculum validation tags on the app
// validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(topicStatusTag, topicStatusValidation)
	core.RegisterCustomTranslation(validate, translator, topicStatusTag, topicStatusText)

	_ = validate.RegisterValidation(topicColorTag, topicColorValidation)
	core.RegisterCustomTranslation(validate, translator, topicColorTag, topicColorText)
}

func topicStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range TopicStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func topicColorValidation(fl validator.FieldLevel) bool {
	color := fl.Field().String()
	for _, c := range TopicColors {
		if color == c {
			return true
		}
	}
	return false
}
