// Package callback resolves schema callback references to Go functions.
//
// Schema files name hooks as "service::method"; hosts register the matching
// functions here. Callbacks that already carry a function resolve to it
// directly.
package callback

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-dcaform/pkg/dca"
)

var (
	// ErrNotFound reports a named callback without a registered function.
	ErrNotFound = errors.New("callback: not registered")
	// ErrSignature reports a registered function of the wrong type.
	ErrSignature = errors.New("callback: unexpected signature")
)

// Registry maps service methods to functions.
type Registry struct {
	mu       sync.RWMutex
	services map[string]map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]map[string]any)}
}

// Register binds fn to service::method. Existing entries are replaced.
func (r *Registry) Register(service, method string, fn any) error {
	service, method = strings.TrimSpace(service), strings.TrimSpace(method)
	if service == "" || method == "" {
		return fmt.Errorf("callback: service and method are required")
	}
	if fn == nil {
		return fmt.Errorf("callback: function for %s::%s is nil", service, method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	methods, ok := r.services[service]
	if !ok {
		methods = make(map[string]any)
		r.services[service] = methods
	}
	methods[method] = fn
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(service, method string, fn any) {
	if err := r.Register(service, method, fn); err != nil {
		panic(err)
	}
}

// Resolve returns the function a callback refers to.
func (r *Registry) Resolve(cb dca.Callback) (any, error) {
	if cb.Func != nil {
		return cb.Func, nil
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cb)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.services[cb.Service][cb.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cb)
	}
	return fn, nil
}

// Names lists the registered references as "service::method", sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for service, methods := range r.services {
		for method := range methods {
			names = append(names, service+"::"+method)
		}
	}
	slices.Sort(names)
	return names
}

// As resolves cb and asserts the function type T.
func As[T any](r *Registry, cb dca.Callback) (T, error) {
	var zero T
	fn, err := r.Resolve(cb)
	if err != nil {
		return zero, err
	}
	typed, ok := fn.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, want %T", ErrSignature, cb, fn, zero)
	}
	return typed, nil
}
