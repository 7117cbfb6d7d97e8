package staffing

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lingora/backend/core"
)

var (
	entryKindTag  = "entrykind"
	entryKindText = "{0} is not a valid entry kind"
)

// RegisterValidators registers the staffing validation tags on the app
// validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(entryKindTag, entryKindValidation)
	core.RegisterCustomTranslation(validate, translator, entryKindTag, entryKindText)
}

func entryKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range EntryKinds {
		if kind == k {
			return true
		}
	}
	return false
}
