package submission

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// HiddenField is a hidden input emitted alongside the edit form.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// NewRequestToken returns a fresh request token.
func NewRequestToken() string {
	return uuid.NewString()
}

// ValidToken reports whether token has the request token format.
func ValidToken(token string) bool {
	_, err := uuid.Parse(strings.TrimSpace(token))
	return err == nil
}

// FormFields returns the hidden fields that let a host round-trip an edit
// form: the table as FORM_SUBMIT, the request token and the palette field
// list under FORM_FIELDS[] (FORM_FIELDS_<suffix>[] in batch edit mode).
func FormFields(table, token string, palette []string, batch bool, suffix string) []HiddenField {
	return []HiddenField{
		Hidden(KeyFormSubmit, table),
		Hidden(KeyRequestToken, token),
		Hidden(FormFieldsKey(batch, suffix)+"[]", strings.Join(palette, ",")),
	}
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	if len(base) == 0 && len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		out[name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields sorts hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return result
}

// HiddenMarkup renders fields as hidden inputs, one per line.
func HiddenMarkup(fields []HiddenField) string {
	var b strings.Builder
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		b.WriteString(`<input type="hidden" name="`)
		b.WriteString(html.EscapeString(field.Name))
		b.WriteString(`" value="`)
		b.WriteString(html.EscapeString(field.Value))
		b.WriteString("\">\n")
	}
	return b.String()
}
