package canonical

import (
	"strings"
	"unicode"
)

// spanishTerms substitutes known English domain words when deriving the
// Spanish label variant from a raw field name.
var spanishTerms = map[string]string{
	"name":      "nombre",
	"full":      "completo",
	"birth":     "nacimiento",
	"date":      "fecha",
	"email":     "correo",
	"income":    "ingresos",
	"salary":    "salario",
	"tax":       "fiscal",
	"residence": "residencia",
	"resident":  "residente",
	"address":   "dirección",
	"phone":     "teléfono",
	"year":      "año",
	"number":    "número",
}

// ReadableLabel turns a raw field name into a human-readable English caption:
// camelCase and separators split into words, digits spaced out, first letter
// capitalized.
func ReadableLabel(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return name
	}
	label := strings.Join(words, " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

// SpanishLabel derives the Spanish caption: same splitting as ReadableLabel
// with known domain terms substituted. Words without a translation stay as
// they are, which matches how configured forms override labels anyway.
func SpanishLabel(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return name
	}
	for i, w := range words {
		if es, ok := spanishTerms[strings.ToLower(w)]; ok {
			words[i] = es
		}
	}
	label := strings.Join(words, " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

func splitWords(name string) []string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '.' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && prev != 0 && !unicode.IsUpper(prev):
			flush()
			cur.WriteRune(r)
		case unicode.IsDigit(r) && prev != 0 && !unicode.IsDigit(prev):
			flush()
			cur.WriteRune(r)
		case !unicode.IsDigit(r) && prev != 0 && unicode.IsDigit(prev):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return words
}

// InferRequired guesses whether a field is required from its raw name alone.
// This is a weak placeholder policy: explicit markers win, otherwise short
// names without an "optional" substring are assumed required. Authoritative
// form configuration overrides it whenever present.
func InferRequired(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "required") || strings.Contains(name, "*") {
		return true
	}
	if strings.Contains(lower, "optional") {
		return false
	}
	return len(name) < 15
}
