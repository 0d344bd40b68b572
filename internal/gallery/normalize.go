package gallery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ/Đ are distinct letters, not d plus a combining mark, so NFD leaves them alone.
var strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// RemoveDiacritics removes diacritical marks from a string (e.g., "Nguyễn Văn Đức" -> "Nguyen Van Duc").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return strokeReplacer.Replace(result)
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes and underscores).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}
