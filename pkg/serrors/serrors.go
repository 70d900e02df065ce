package serrors

import (
	"github.com/iota-uz/go-i18n/v2/i18n"
)

// BaseError is a structured error with a stable machine code and an
// optional locale key for user-facing rendering.
type BaseError struct {
	Code      string
	Message   string
	LocaleKey string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

// Localize renders the error through the bundle when a locale key is set,
// falling back to the raw message.
func (e *BaseError) Localize(l *i18n.Localizer) string {
	if e.LocaleKey == "" {
		return e.Message
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: e.LocaleKey})
	if err != nil {
		return e.Message
	}
	return msg
}
