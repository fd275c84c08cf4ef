package storemodel

import (
	"strings"
	"unicode"
)

// KeyCoder rewrites the top-level keys of a payload between their wire
// spelling and the declared attribute names. Load runs before construction,
// Dump after serialization; nested payloads are left to their own schema's
// coder.
type KeyCoder interface {
	Load(wire map[string]any) map[string]any
	Dump(attrs map[string]any) map[string]any
}

// CamelCase stores keys in lowerCamelCase ("primaryColor") for attributes
// declared in snake_case ("primary_color").
type CamelCase struct{}

func (CamelCase) Load(wire map[string]any) map[string]any {
	return transformKeys(wire, Underscore)
}

func (CamelCase) Dump(attrs map[string]any) map[string]any {
	return transformKeys(attrs, LowerCamel)
}

func transformKeys(m map[string]any, fn func(string) string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fn(k)] = v
	}
	return out
}

// Underscore converts "primaryColor" or "PrimaryColor" to "primary_color".
// Runs of capitals are kept together: "HTTPCode" -> "http_code".
func Underscore(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for n, r := range rs {
		if r == '-' {
			b.WriteByte('_')
			continue
		}
		if unicode.IsUpper(r) {
			prevLower := n > 0 && (unicode.IsLower(rs[n-1]) || unicode.IsDigit(rs[n-1]))
			nextLower := n > 0 && n+1 < len(rs) && unicode.IsUpper(rs[n-1]) && unicode.IsLower(rs[n+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LowerCamel converts "primary_color" to "primaryColor".
func LowerCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}
