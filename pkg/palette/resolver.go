package palette

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcaform/pkg/dca"
)

// Values exposes submitted form values.
type Values interface {
	Post(name string) ([]string, bool)
}

// State is the record and submission a palette is resolved against.
type State struct {
	// Record is the stored row; selector triggers default to its values.
	Record map[string]any
	// Submitted overrides stored triggers when Submitting is set.
	Submitted  Values
	Submitting bool
	// Suffix is appended as "_<suffix>" to submitted keys in batch edit mode.
	Suffix string
}

// Resolve returns the palette expression for the current selector values
// with the matching subpalettes spliced in after their selector.
func Resolve(table dca.TableSpec, state State) string {
	expr := table.Palettes[dca.DefaultPalette]
	if len(table.Selectors) == 0 {
		return expr
	}

	type splice struct {
		selector string
		fields   string
	}
	var (
		values  []string
		splices []splice
	)
	for _, name := range table.Selectors {
		trigger := triggerValue(name, state)
		if trigger == "" {
			continue
		}
		field, _ := table.Field(name)
		if field.InputType == dca.InputCheckbox && !field.Eval.Multiple {
			values = append(values, name)
			if sub := table.Subpalettes[name]; sub != "" {
				splices = append(splices, splice{selector: name, fields: sub})
			}
			continue
		}
		values = append(values, trigger)
		if sub := table.Subpalettes[name+"_"+trigger]; sub != "" {
			splices = append(splices, splice{selector: name, fields: sub})
		}
	}

	var names []string
	switch len(values) {
	case 0:
		names = []string{dca.DefaultPalette}
	case 1:
		names = values
	default:
		filtered := make([]string, 0, len(values))
		for _, value := range values {
			if _, ok := table.Subpalettes[value]; ok {
				continue
			}
			filtered = append(filtered, value)
		}
		names = Combine(filtered)
	}
	for _, name := range names {
		if candidate, ok := table.Palettes[name]; ok {
			expr = candidate
			break
		}
	}

	for _, s := range splices {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s.selector) + `\b`)
		replacement := s.selector + ",[" + s.selector + "]," + s.fields + ",[EOF]"
		expr = pattern.ReplaceAllLiteralString(expr, replacement)
	}
	return expr
}

// Fields resolves the palette and tokenises it.
func Fields(table dca.TableSpec, state State) []string {
	return Split(Resolve(table, state))
}

func triggerValue(name string, state State) string {
	trigger := Stringify(state.Record[name])
	if !state.Submitting || state.Submitted == nil {
		return trigger
	}
	key := name
	if state.Suffix != "" {
		key = name + "_" + state.Suffix
	}
	if posted, ok := state.Submitted.Post(key); ok {
		trigger = lastValue(posted)
	}
	return trigger
}

func lastValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

// Stringify renders a stored scalar the way it is compared against
// submitted form values.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return ""
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}
