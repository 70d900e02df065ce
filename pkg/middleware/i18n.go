package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/dchoinie/church-membership-app-sub003/pkg/intl"
)

// localeSource is the slice of application state locale negotiation needs.
type localeSource interface {
	Bundle() *i18n.Bundle
	GetSupportedLanguages() []string
}

// ProvideLocalizer negotiates the request locale from Accept-Language
// against the configured language list and stores a ready localizer in the
// context. DTO validation messages localize through it.
func ProvideLocalizer(app localeSource) mux.MiddlewareFunc {
	bundle := app.Bundle()
	supported := supportedTags(app.GetSupportedLanguages())
	matcher := language.NewMatcher(supported)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := negotiateLocale(r.Header.Get("Accept-Language"), matcher, supported)
			ctx := intl.WithLocalizer(r.Context(), i18n.NewLocalizer(bundle, locale.String()))
			ctx = intl.WithLocale(ctx, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// supportedTags never returns an empty slice; the first entry doubles as
// the fallback locale.
func supportedTags(codes []string) []language.Tag {
	langs := intl.GetSupportedLanguages(codes)
	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, lang.Tag)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return tags
}

func negotiateLocale(acceptLanguage string, matcher language.Matcher, supported []language.Tag) language.Tag {
	candidates, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(candidates) == 0 {
		return supported[0]
	}
	_, idx, _ := matcher.Match(candidates...)
	return supported[idx]
}
