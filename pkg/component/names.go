package component

import (
	"strings"
	"unicode"
)

// CamelCase turns "air_bridge" into "AirBridge". Every underscore-separated
// word is capitalised and the rest of it lower-cased.
func CamelCase(s string) string {
	var sb strings.Builder
	for _, word := range strings.Split(s, "_") {
		if word == "" {
			continue
		}
		r := []rune(strings.ToLower(word))
		r[0] = unicode.ToUpper(r[0])
		sb.WriteString(string(r))
	}
	return sb.String()
}

// SnakeCase turns "AirBridge" into "air_bridge": an underscore goes before
// every upper-case letter except a leading one, and all letters are
// lower-cased.
func SnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return strings.TrimLeft(sb.String(), "_")
}
