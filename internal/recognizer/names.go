package recognizer

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no
// diacritics, spaces for dashes and underscores). Attendance dedup and the
// people count both key on this form.
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// DisplayName derives a person's display name from a dataset file stem: the
// trailing numeric sample suffix is stripped, underscores become spaces and
// words are title-cased ("john_doe_2" -> "John Doe").
func DisplayName(stem string) string {
	if i := strings.LastIndex(stem, "_"); i > 0 {
		if _, err := strconv.Atoi(stem[i+1:]); err == nil {
			stem = stem[:i]
		}
	}
	stem = strings.ReplaceAll(stem, "_", " ")
	return cases.Title(language.Und).String(strings.TrimSpace(stem))
}
