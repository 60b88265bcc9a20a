package urls

import (
	"net/url"
	"slices"
	"strings"
)

// Builder derives links from the current backend request.
type Builder struct {
	script  string
	current []Param
	refID   string
}

// NewBuilder returns a builder for the request with the given raw query.
// refID is the referer id appended to generated links.
func NewBuilder(script, rawQuery, refID string) *Builder {
	if script == "" {
		script = DefaultScript
	}
	return &Builder{script: script, current: ParseQuery(rawQuery), refID: refID}
}

// AddToURL merges request into the current query string and returns the
// link with "&amp;" separators. The request token (rt) and referer (ref)
// are dropped, keys in unset are removed, and ref is re-added when the
// builder has one.
func (b *Builder) AddToURL(request string, unset ...string) string {
	pairs := make([]Param, 0, len(b.current))
	for _, p := range b.current {
		if p.Key == "rt" || p.Key == "ref" || slices.Contains(unset, p.Key) {
			continue
		}
		pairs = append(pairs, p)
	}
	for _, p := range ParseQuery(request) {
		pairs = set(pairs, p)
	}
	if b.refID != "" && (b.has("ref") || request != "") {
		pairs = set(pairs, Param{Key: "ref", Value: b.refID})
	}

	if len(pairs) == 0 {
		return b.script
	}
	return b.script + "?" + Encode(pairs, "&amp;")
}

// SwitchToEdit returns the link that opens record id in edit mode while
// keeping the other query parameters.
func (b *Builder) SwitchToEdit(id string) string {
	var (
		keys  []string
		table string
	)
	for _, p := range b.current {
		switch p.Key {
		case "table":
			table = p.Value
		case "act", "id":
		default:
			keys = append(keys, p.Key+"="+p.Value)
		}
	}

	out := b.script + "?" + strings.Join(keys, "&")
	if len(keys) > 0 {
		out += "&"
	}
	if table != "" {
		out += "table=" + table + "&amp;"
	}
	return out + "act=edit&amp;id=" + url.PathEscape(id)
}

// Query returns the value of a current query parameter.
func (b *Builder) Query(key string) string {
	for _, p := range b.current {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

func (b *Builder) has(key string) bool {
	return slices.ContainsFunc(b.current, func(p Param) bool { return p.Key == key })
}

func set(pairs []Param, p Param) []Param {
	for i := range pairs {
		if pairs[i].Key == p.Key {
			pairs[i].Value = p.Value
			return pairs
		}
	}
	return append(pairs, p)
}
