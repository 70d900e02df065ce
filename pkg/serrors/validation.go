package serrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/go-i18n/v2/i18n"
)

// FieldError describes a single failed validation rule on a DTO field.
type FieldError struct {
	Field          string
	Rule           string
	Param          string
	FieldLocaleKey string
}

// ValidationErrors maps field names to their first failed rule.
type ValidationErrors map[string]*FieldError

// ProcessValidatorErrors converts go-playground validator output into
// ValidationErrors. getFieldLocaleKey maps a struct field name to the
// locale key of its display name; empty means the raw field name is used.
func ProcessValidatorErrors(
	errs validator.ValidationErrors,
	getFieldLocaleKey func(field string) string,
) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		if _, ok := out[fe.Field()]; ok {
			continue
		}
		out[fe.Field()] = &FieldError{
			Field:          fe.Field(),
			Rule:           fe.Tag(),
			Param:          fe.Param(),
			FieldLocaleKey: getFieldLocaleKey(fe.Field()),
		}
	}
	return out
}

// LocalizeValidationErrors renders each field error with the request
// localizer, producing the field -> message map returned by DTO Ok methods.
func LocalizeValidationErrors(errs ValidationErrors, l *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(errs))
	for field, fe := range errs {
		out[field] = fe.Localize(l)
	}
	return out
}

func (e *FieldError) Localize(l *i18n.Localizer) string {
	fieldName := e.Field
	if e.FieldLocaleKey != "" {
		if name, err := l.Localize(&i18n.LocalizeConfig{MessageID: e.FieldLocaleKey}); err == nil {
			fieldName = name
		}
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID: fmt.Sprintf("ValidationErrors.%s", e.Rule),
		TemplateData: map[string]string{
			"Field": fieldName,
			"Param": e.Param,
		},
	})
	if err != nil {
		return fmt.Sprintf("%s: failed on %s", fieldName, e.Rule)
	}
	return msg
}
