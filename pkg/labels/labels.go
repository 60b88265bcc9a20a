// Package labels provides the translation table used for backend labels,
// error messages and button titles. Keys are dotted paths such as
// "MSC.datepicker", "ERR.mandatory" or "tl_page.up".
package labels

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Table holds (title, help) pairs keyed by dotted path. A plain string entry
// is stored as a pair with an empty help text.
type Table struct {
	mu      sync.RWMutex
	entries map[string][2]string
}

// New returns a table seeded with the default English strings.
func New() *Table {
	t := &Table{entries: make(map[string][2]string, len(defaults))}
	for key, value := range defaults {
		t.entries[key] = value
	}
	return t
}

// Get returns the first element of the entry, or "" when missing.
func (t *Table) Get(key string) string {
	pair, _ := t.Lookup(key)
	return pair[0]
}

// Pair returns both elements of the entry.
func (t *Table) Pair(key string) (string, string) {
	pair, _ := t.Lookup(key)
	return pair[0], pair[1]
}

// Lookup reports whether the key is present.
func (t *Table) Lookup(key string) ([2]string, bool) {
	if t == nil {
		pair, ok := defaults[key]
		return pair, ok
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	pair, ok := t.entries[key]
	return pair, ok
}

// Format runs fmt.Sprintf on the entry text. Missing keys fall back to the
// key itself so broken translations stay visible.
func (t *Table) Format(key string, args ...any) string {
	text, ok := t.Lookup(key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text[0]
	}
	return fmt.Sprintf(text[0], args...)
}

// Set overrides one entry.
func (t *Table) Set(key, title, help string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = [2]string{title, help}
}

// Keys lists the sorted entry keys.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// MergeYAML overlays a nested YAML document. Scalars become titles,
// two-element sequences become (title, help) pairs.
//
//	MSC:
//	  datepicker: Date picker
//	tl_page:
//	  up: [Move up, Move the page one position up]
func (t *Table) MergeYAML(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("labels: parse: %w", err)
	}
	if len(root.Content) == 0 {
		return nil
	}
	flat := make(map[string][2]string)
	if err := flatten(root.Content[0], "", flat); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for key, value := range flat {
		t.entries[key] = value
	}
	return nil
}

// LoadFile merges the YAML file at path into a fresh default table.
func LoadFile(path string) (*Table, error) {
	table := New()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: read %s: %w", path, err)
	}
	if err := table.MergeYAML(data); err != nil {
		return nil, err
	}
	return table, nil
}

func flatten(node *yaml.Node, prefix string, out map[string][2]string) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(node.Content[i+1], key, out); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("labels: top-level scalar is not allowed")
		}
		out[prefix] = [2]string{node.Value}
	case yaml.SequenceNode:
		if len(node.Content) > 2 {
			return fmt.Errorf("labels: %s has %d elements, want at most 2", prefix, len(node.Content))
		}
		var pair [2]string
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("labels: %s must hold scalar values", prefix)
			}
			pair[i] = item.Value
		}
		out[prefix] = pair
	default:
		return fmt.Errorf("labels: unsupported node at %q", prefix)
	}
	return nil
}

var defaults = map[string][2]string{
	"MSC.mandatory":     {"Mandatory field"},
	"MSC.wordWrap":      {"Toggle word wrap"},
	"MSC.helpWizard":    {"Open the help wizard"},
	"MSC.datepicker":    {"Date picker"},
	"MSC.colorpicker":   {"Color picker (requires JavaScript)"},
	"MSC.pagepicker":    {"Open the page picker"},
	"MSC.updateMode":    {"Update mode"},
	"MSC.updateAdd":     {"Add selected values"},
	"MSC.updateRemove":  {"Remove selected values"},
	"MSC.updateReplace": {"Replace existing entries"},
	"MSC.weekOffset":    {"1"},
	"MSC.titleFormat":   {"%B %d%o, %Y"},
	"MSC.noResult":      {"No records found."},

	"MSC.changeSelection": {"Change selection"},

	"ERR.mandatory": {`Please fill in field "%s"!`},
	"ERR.minlength": {`Field "%s" has to be at least %d characters long!`},
	"ERR.maxlength": {`Field "%s" must not be longer than %d characters!`},
	"ERR.email":     {"Please enter a valid e-mail address!"},
	"ERR.url":       {"Please enter a valid URL format and encode special characters!"},
	"ERR.date":      {`Please enter the date as "%s"!`},
	"ERR.time":      {`Please enter the time as "%s"!`},
	"ERR.dateTime":  {`Please enter date and time as "%s"!`},
	"ERR.digit":     {"Please enter digits only!"},
	"ERR.natural":   {"Please enter a natural number!"},
	"ERR.alpha":     {"Please enter alphabetic characters only!"},
	"ERR.alnum":     {"Please enter alphanumeric characters only!"},
	"ERR.alias":     {`Field "%s" contains invalid characters. Only letters, numbers, hyphens and underscores are allowed.`},
	"ERR.colorRgb":  {"Please enter a hexadecimal color code!"},
	"ERR.invalid":   {`Please select a valid option in field "%s"!`},
	"ERR.rule":      {`Field "%s" does not satisfy its validation rule.`},

	"tl_files.edit_preview_help": {"Click on the image to mark the important part. The selection is used as the focus point when cropping."},
}
