// Package canonical maps raw PDF field names onto a small set of semantic
// keys shared across differently-named tax forms, and derives human-readable
// labels from raw names.
package canonical

import "strings"

// Key identifies one of the canonical semantic fields.
type Key string

const (
	KeyFullName     Key = "fullName"
	KeyNationalID   Key = "nationalId"
	KeyBirthDate    Key = "birthDate"
	KeyEmail        Key = "email"
	KeyIncome       Key = "income"
	KeyTaxResidence Key = "taxResidence"
)

// Keys lists every canonical key in a stable order.
func Keys() []Key {
	return []Key{KeyFullName, KeyNationalID, KeyBirthDate, KeyEmail, KeyIncome, KeyTaxResidence}
}

// Rule matches a raw field name against a canonical key. Matching is
// case-insensitive substring containment over Patterns; Excludes veto a
// match. Rules are evaluated in order and the first match wins.
type Rule struct {
	Key      Key
	Patterns []string
	Excludes []string
}

// Rules returns the default classification rule table. Order encodes
// precedence: earlier rules shadow later ones, so the more specific
// patterns come first ("email" before the national-ID "id" catch-all would
// otherwise never fire for "emailAddress"-style names, since "id" is a
// substring of neither but "e-mail" contains no other pattern).
func Rules() []Rule {
	return []Rule{
		{
			Key:      KeyEmail,
			Patterns: []string{"email", "e-mail", "correo"},
		},
		{
			Key:      KeyBirthDate,
			Patterns: []string{"birth", "nacimiento", "fecha"},
		},
		{
			Key:      KeyIncome,
			Patterns: []string{"income", "salary", "ingres", "salario"},
		},
		{
			Key:      KeyTaxResidence,
			Patterns: []string{"resident", "fiscal", "tax"},
		},
		{
			Key:      KeyFullName,
			Patterns: []string{"fullname", "full_name", "nombre", "name"},
		},
		{
			// "id" alone is too greedy ("hidden", "valid"), so it is guarded.
			Key:      KeyNationalID,
			Patterns: []string{"dni", "nie", "nif", "id"},
			Excludes: []string{"hide", "hidden", "valid", "width"},
		},
	}
}

// Classifier resolves raw field names to canonical keys using an ordered
// rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the default rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: Rules()}
}

// NewClassifierWithRules creates a classifier over a custom rule table.
// Useful for testing rule order and precedence in isolation.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the canonical key for a raw field name, or false when no
// rule matches. A name maps to at most one key, deterministically.
func (c *Classifier) Classify(name string) (Key, bool) {
	lower := strings.ToLower(name)
	for _, rule := range c.rules {
		if rule.matches(lower) {
			return rule.Key, true
		}
	}
	return "", false
}

func (r Rule) matches(lowerName string) bool {
	for _, excl := range r.Excludes {
		if strings.Contains(lowerName, excl) {
			return false
		}
	}
	for _, pat := range r.Patterns {
		if strings.Contains(lowerName, pat) {
			return true
		}
	}
	return false
}

// NormalizeBoolean maps the yes/no spellings that show up in tax-residence
// style fields onto the literal strings "true"/"false". The second return is
// false when the raw value is not recognizably boolean.
func NormalizeBoolean(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "sí", "si", "1", "on", "y":
		return "true", true
	case "no", "false", "0", "off", "n":
		return "false", true
	default:
		return "", false
	}
}
