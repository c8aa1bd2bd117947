package dialogue

import (
	"regexp"
	"strings"
	"time"

	"github.com/tributolabs/formfill/internal/canonical"
	"github.com/tributolabs/formfill/internal/form"
)

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	numberPattern = regexp.MustCompile(`^[+-]?\d+([.,]\d+)?$`)
)

// dateLayouts are the accepted input formats; committed values always
// normalize to the first one.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006",
}

// Validate checks a free-text answer against the field's kind. On success it
// returns the formatted value to commit and an empty verdict; on failure it
// returns the i18n key of the re-prompt message.
func Validate(fd *form.FieldDescriptor, input string) (value, verdict string) {
	input = strings.TrimSpace(input)

	switch fd.Kind {
	case form.FieldKindCheckbox:
		normalized, ok := canonical.NormalizeBoolean(input)
		if !ok {
			return "", "dialogue.invalidCheckbox"
		}
		return normalized, ""

	case form.FieldKindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, input); err == nil {
				return t.Format(dateLayouts[0]), ""
			}
		}
		return "", "dialogue.invalidDate"

	case form.FieldKindEmail:
		if !emailPattern.MatchString(input) {
			return "", "dialogue.invalidEmail"
		}
		return input, ""

	case form.FieldKindNumber:
		if !numberPattern.MatchString(input) {
			return "", "dialogue.invalidNumber"
		}
		// Spanish decimal commas normalize to dots.
		return strings.ReplaceAll(input, ",", "."), ""

	case form.FieldKindRadio, form.FieldKindDropdown, form.FieldKindMultiSelect:
		if len(fd.Options) > 0 {
			for _, opt := range fd.Options {
				if strings.EqualFold(opt, input) {
					return opt, ""
				}
			}
			return "", "dialogue.invalidOption"
		}
		fallthrough

	default:
		if input == "" {
			return "", "dialogue.invalidText"
		}
		return input, ""
	}
}
