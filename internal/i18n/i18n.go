// Package i18n provides the localized UI strings for the form-filling flows.
// Lookup is keyed by dotted path, falling back to the key itself when a
// translation is missing, so untranslated keys surface visibly instead of
// crashing a flow.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language codes supported by the assistant.
const (
	LangEnglish = "en"
	LangSpanish = "es"
)

var matcher = language.NewMatcher([]language.Tag{
	language.English, // first tag is the fallback
	language.Spanish,
})

// MatchLanguage resolves an Accept-Language style string (or a bare language
// code) to one of the supported languages, defaulting to English.
func MatchLanguage(accept string) string {
	if accept == "" {
		return LangEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return LangEnglish
	}
	_, index, _ := matcher.Match(tags...)
	if index == 1 {
		return LangSpanish
	}
	return LangEnglish
}

// T looks up a dotted-path key in the given language. Positional arguments
// are substituted with fmt.Sprintf when present.
func T(lang, key string, args ...any) string {
	table := en
	if lang == LangSpanish {
		table = es
	}
	value := lookup(table, key)
	if value == "" {
		// Fall back to English before giving up on the key.
		if lang != LangEnglish {
			value = lookup(en, key)
		}
		if value == "" {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(value, args...)
	}
	return value
}

func lookup(table map[string]any, key string) string {
	parts := strings.Split(key, ".")
	var node any = table
	for _, part := range parts {
		m, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		node = m[part]
	}
	s, _ := node.(string)
	return s
}
