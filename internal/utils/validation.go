package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct using its `validate` tags and returns a
// VALIDATION_FAILED AppError describing the first offending field, or nil.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return NewAppErrorWithCause(
				ErrorCodeValidationFailed,
				SeverityWarn,
				"Validation failed",
				fe.Namespace()+" failed on '"+fe.Tag()+"'",
				err,
			)
		}
		return WrapError(err, "validation failed")
	}
	return nil
}
