package widgets

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcaform/pkg/dca"
)

// Attributes is the widget configuration derived from a field declaration.
// Required is the HTML/label state; Mandatory drives validation.
type Attributes struct {
	Name              string
	ID                string
	Field             string
	Table             string
	Label             string
	Help              string
	Value             any
	Options           []dca.Option
	Mandatory         bool
	Required          bool
	Multiple          bool
	ReadOnly          bool
	Rgxp              string
	MinLength         int
	MaxLength         int
	Size              int
	FieldType         string
	Rule              string
	SubmitOnChange    bool
	UseRawRequestData bool
	DoNotSaveEmpty    bool
	RootNodes         []int64
	Class             string
	XLabel            string
	Wizard            string
	CurrentRecord     int64
	Record            map[string]any
}

// FromField maps a field declaration onto widget attributes for the given
// submission key and current value.
func FromField(field dca.FieldSpec, inputName string, value any, table string) Attributes {
	eval := field.Eval
	attrs := Attributes{
		Name:           inputName,
		ID:             inputName,
		Field:          field.Name,
		Table:          table,
		Label:          field.Label.Title,
		Help:           field.Label.Help,
		Value:          value,
		Options:        slices.Clone(field.Options),
		Mandatory:      eval.Mandatory,
		Multiple:       eval.Multiple,
		ReadOnly:       eval.ReadOnly,
		Rgxp:           eval.Rgxp,
		MinLength:      eval.MinLength,
		MaxLength:      eval.MaxLength,
		Size:           eval.Size,
		FieldType:      eval.FieldType,
		Rule:           eval.Rule,
		SubmitOnChange: eval.SubmitOnChange,
		DoNotSaveEmpty: eval.DoNotSaveEmpty,
		RootNodes:      slices.Clone(eval.RootNodes),
	}
	if eval.UseRawRequestData != nil {
		attrs.UseRawRequestData = *eval.UseRawRequestData
	}
	if attrs.Label == "" {
		attrs.Label = field.Name
	}
	return attrs
}

// ValueList normalises a stored value into a list of strings. Strings that
// hold a JSON array are decoded; other scalars become a single entry.
func ValueList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, ValueString(item))
		}
		return out
	case []int64:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, strconv.FormatInt(item, 10))
		}
		return out
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return ValueList(decoded)
			}
		}
		return []string{v}
	default:
		return []string{ValueString(v)}
	}
}

// ValueString renders a scalar value for display.
func ValueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		return strings.Join(v, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// IsEmpty reports whether a value counts as empty: a nil value, an empty
// collection or a zero-length string.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case map[string]string:
		return len(v) == 0
	default:
		return ValueString(v) == ""
	}
}

var numericPattern = regexp.MustCompile(`^[ \t\n\r\v\f]*[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?[ \t\n\r\v\f]*$`)

// IsNumeric reports whether raw is a decimal number, optionally signed,
// fractional or with an exponent. NaN, infinities and hex forms are not.
func IsNumeric(raw string) bool {
	return numericPattern.MatchString(raw)
}
