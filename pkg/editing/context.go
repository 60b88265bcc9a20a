// Package editing renders the edit row of a single field: decorations,
// widget markup, validation of the current submission, the save hook and
// the auxiliary wizards (date picker, color picker, relation picker, rich
// text editor, update mode and image preview).
package editing

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/submission"
)

// ErrAccessDenied reports an attempt to edit an excluded field.
var ErrAccessDenied = errors.New("editing: access denied")

// AccessDeniedError names the excluded field.
type AccessDeniedError struct {
	Table string
	Field string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("Field %q is excluded from being edited.", e.Table+"."+e.Field)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}

// Callback signatures resolved from schema references.
type (
	XLabelFunc     = func(dc *EditContext) string
	WizardFunc     = func(dc *EditContext) string
	InputFieldFunc = func(dc *EditContext, xlabel string) string
	LoadFunc       = func(value any, dc *EditContext) (any, error)
)

// EditContext is the state of one field render. It is created per call and
// must not be shared between requests.
type EditContext struct {
	Table     string
	Field     string
	ID        int64
	InputName string
	// Value is the current value. Nil reads the field from ActiveRecord
	// once access to the field has been checked.
	Value any
	// ActiveRecord is the stored row, nil for new or unknown records.
	ActiveRecord records.Record
	// Palette overrides the computed palette during validation; nil
	// compiles it from the schema.
	Palette []string
	// Request is the current submission; nil when nothing was posted.
	Request *submission.Request
	// Privileged sessions may edit pid and sorting in batch edit mode.
	Privileged bool
	// Token is the request token embedded in generated scripts.
	Token string

	noReload   bool
	uploadable bool
}

// NewEditContext returns a context whose input name is the field name.
func NewEditContext(table, field string, id int64) *EditContext {
	return &EditContext{Table: table, Field: field, ID: id, InputName: field}
}

// NoReload reports whether the form has to be shown again instead of
// redirecting, because a value was rejected or could not be saved.
func (c *EditContext) NoReload() bool {
	return c.noReload
}

// MarkNoReload sets the no-reload flag. The flag is never cleared.
func (c *EditContext) MarkNoReload() {
	c.noReload = true
}

// Uploadable reports whether a rendered widget needs a multipart form.
func (c *EditContext) Uploadable() bool {
	return c.uploadable
}

// Action is the act query parameter of the current request.
func (c *EditContext) Action() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.Action()
}

// RunLoad passes value through the load callbacks of field in order.
func RunLoad(reg *callback.Registry, field dca.FieldSpec, value any, dc *EditContext) (any, error) {
	for _, cb := range field.Load {
		fn, err := callback.As[LoadFunc](reg, cb)
		if err != nil {
			return nil, fmt.Errorf("editing: load callback of %s: %w", field.Name, err)
		}
		value, err = fn(value, dc)
		if err != nil {
			return nil, fmt.Errorf("editing: load callback %s: %w", cb, err)
		}
	}
	return value, nil
}
