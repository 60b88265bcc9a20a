// Package urls builds backend links: named routes and query strings that
// extend the current request ("addToUrl").
package urls

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrRouteNotFound reports an unknown route name.
var ErrRouteNotFound = errors.New("urls: route not found")

// PickerRoute is the name of the picker popup route.
const PickerRoute = "contao_backend_picker"

// DefaultScript is the backend entry point links are relative to.
const DefaultScript = "contao"

// Param is one query parameter. Order is kept when encoding.
type Param struct {
	Key   string
	Value string
}

// Router maps route names to paths. Path segments written as {name} are
// filled from the parameters; the rest become the query string.
type Router struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewRouter returns a router with the backend routes registered.
func NewRouter() *Router {
	return &Router{routes: map[string]string{
		PickerRoute:       "/contao/picker",
		"contao_backend":  "/contao",
		"contao_fieldrow": "/contao/{table}/{id}/fields/{field}",
	}}
}

// Register adds or replaces a named route.
func (r *Router) Register(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = path
}

// Generate returns the URL of the named route with "&" separated query
// parameters.
func (r *Router) Generate(name string, params ...Param) (string, error) {
	r.mu.RLock()
	path, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	var query []Param
	for _, p := range params {
		placeholder := "{" + p.Key + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(p.Value))
			continue
		}
		query = append(query, p)
	}
	if len(query) == 0 {
		return path, nil
	}
	return path + "?" + Encode(query, "&"), nil
}

// Encode joins params with sep, escaping keys and values as RFC 3986
// query components.
func Encode(params []Param, sep string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, escape(p.Key)+"="+escape(p.Value))
	}
	return strings.Join(parts, sep)
}

// ParseQuery splits a raw query string into ordered parameters. "&amp;"
// separators are accepted.
func ParseQuery(raw string) []Param {
	raw = strings.TrimPrefix(strings.ReplaceAll(raw, "&amp;", "&"), "?")
	if raw == "" {
		return nil
	}
	var out []Param
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			v = value
		}
		out = append(out, Param{Key: k, Value: v})
	}
	return out
}

func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
