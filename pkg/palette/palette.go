// Package palette works out which fields of a table are active for an edit
// session. A palette is a comma/semicolon separated list of field names
// interleaved with legend markers ("{title_legend}") and subpalette markers
// ("[addImage]"); selector fields pick a palette and splice in subpalettes.
package palette

import (
	"strings"
)

// Split tokenises a palette expression. Legend and subpalette markers and
// empty tokens are dropped; duplicates are kept.
func Split(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	parts := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" || strings.HasPrefix(token, "{") || strings.HasPrefix(token, "[") {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Unique removes duplicates and empty entries, keeping the first occurrence.
func Unique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// Combine enumerates the non-empty order-preserving combinations of names.
// Each step doubles the partial results: even positions emit the partial
// result before the extended one, odd positions the other way round. The
// resulting order is relied on when picking the first declared palette, so
// ["a","b"] yields [b ab a] and ["a","b","c"] yields [c bc b ab abc ac a].
func Combine(names []string) []string {
	partial := []string{""}
	for _, name := range names {
		buffer := make([]string, 0, len(partial)*2)
		for k, v := range partial {
			if k%2 == 0 {
				buffer = append(buffer, v, v+name)
			} else {
				buffer = append(buffer, v+name, v)
			}
		}
		partial = buffer
	}

	out := make([]string, 0, len(partial))
	for _, v := range partial {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Intersect keeps the entries of values that also appear in allowed, in the
// order of values.
func Intersect(values, allowed []string) []string {
	if len(values) == 0 || len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, value := range allowed {
		set[value] = struct{}{}
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := set[value]; ok {
			out = append(out, value)
		}
	}
	return out
}
