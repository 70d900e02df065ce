package intl

import "golang.org/x/text/language"

// SupportedLanguage pairs a locale file code with its display name.
type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

// catalog lists every language the app ships locale files for, in
// fallback-priority order.
var catalog = []SupportedLanguage{
	{Code: "en", VerboseName: "English", Tag: language.English},
	{Code: "es", VerboseName: "Español", Tag: language.Spanish},
}

// SupportedLanguages is the unfiltered catalog.
var SupportedLanguages = catalog

// GetSupportedLanguages filters the catalog by the configured code
// whitelist, preserving catalog order. An empty whitelist means all.
func GetSupportedLanguages(whitelist []string) []SupportedLanguage {
	if len(whitelist) == 0 {
		return catalog
	}

	allowed := make(map[string]struct{}, len(whitelist))
	for _, code := range whitelist {
		allowed[code] = struct{}{}
	}
	out := make([]SupportedLanguage, 0, len(whitelist))
	for _, lang := range catalog {
		if _, ok := allowed[lang.Code]; ok {
			out = append(out, lang)
		}
	}
	return out
}
