// Package preview walks a user through rendering one field row from the
// terminal: pick a table, a field and a record, optionally submit a value,
// and print the resulting markup.
package preview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/palette"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/submission"
)

// ErrAborted signals the user aborted input (e.g., Ctrl+C).
var ErrAborted = errors.New("preview: aborted")

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithLookup sets the record source stored values are read from.
func WithLookup(lookup records.Lookup) Option {
	return func(s *Session) {
		s.lookup = lookup
	}
}

// Session renders field rows interactively.
type Session struct {
	renderer *editing.Renderer
	driver   PromptDriver
	lookup   records.Lookup
}

// Result is the outcome of one Run.
type Result struct {
	Table    string
	Field    string
	ID       int64
	Markup   string
	NoReload bool
	// Submitted holds the posted form, nil when nothing was submitted.
	Submitted url.Values
}

// New returns a session rendering with renderer.
func New(renderer *editing.Renderer, opts ...Option) (*Session, error) {
	if renderer == nil {
		return nil, fmt.Errorf("preview: renderer is required")
	}
	s := &Session{renderer: renderer}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.driver == nil {
		return nil, fmt.Errorf("preview: prompt driver is required")
	}
	return s, nil
}

// Run prompts for one field row and prints its markup.
func (s *Session) Run(ctx context.Context) (Result, error) {
	store := s.renderer.Store()

	tables := store.Names()
	if len(tables) == 0 {
		return Result{}, fmt.Errorf("preview: schema has no tables")
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Table", Options: tables})
	if err != nil {
		return Result{}, err
	}
	if idx < 0 || idx >= len(tables) {
		return Result{}, fmt.Errorf("preview: invalid table selection %d", idx)
	}
	table, err := store.Table(tables[idx])
	if err != nil {
		return Result{}, err
	}

	fields := fieldNames(table)
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("preview: table %s has no editable fields", table.Name)
	}
	idx, err = s.driver.Select(ctx, SelectConfig{Message: "Field", Options: fields, PageSize: 15})
	if err != nil {
		return Result{}, err
	}
	if idx < 0 || idx >= len(fields) {
		return Result{}, fmt.Errorf("preview: invalid field selection %d", idx)
	}
	field := table.Fields[fields[idx]]

	rawID, err := s.driver.Input(ctx, InputConfig{
		Message:   "Record id",
		Default:   "0",
		Validator: validateID,
	})
	if err != nil {
		return Result{}, err
	}
	id, _ := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)

	dc := editing.NewEditContext(table.Name, field.Name, id)
	if s.lookup != nil && id != 0 {
		record, err := s.lookup.FindByPrimaryKey(ctx, table.Name, id)
		switch {
		case errors.Is(err, records.ErrNotFound):
		case err != nil:
			return Result{}, err
		default:
			dc.ActiveRecord = record
		}
	}

	result := Result{Table: table.Name, Field: field.Name, ID: id}

	submit, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Submit a value?"})
	if err != nil {
		return Result{}, err
	}
	if submit {
		values, err := s.ask(ctx, field, palette.Stringify(dc.ActiveRecord.Get(field.Name)))
		if err != nil {
			return Result{}, err
		}
		form := url.Values{
			submission.KeyFormSubmit: {table.Name},
			submission.KeyFormFields: {field.Name},
			field.Name:               values,
		}
		dc.Request = submission.New(form, url.Values{"act": {submission.ActEdit}})
		result.Submitted = form
	}

	markup, err := s.renderer.Row(ctx, dc)
	if err != nil {
		return Result{}, err
	}
	result.Markup = markup
	result.NoReload = dc.NoReload()

	if err := s.driver.Info(ctx, markup); err != nil {
		return Result{}, err
	}
	if result.NoReload {
		if err := s.driver.Info(ctx, "The submitted value was rejected."); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

// ask prompts for the submitted value in the shape the field's widget reads.
func (s *Session) ask(ctx context.Context, field dca.FieldSpec, current string) ([]string, error) {
	message := field.Label.Title
	if message == "" {
		message = field.Name
	}
	help := field.Label.Help

	if len(field.Options) > 0 {
		options := make([]string, len(field.Options))
		for i, opt := range field.Options {
			options[i] = opt.Label
		}
		if field.Eval.Multiple {
			picked, err := s.driver.MultiSelect(ctx, SelectConfig{Message: message, Options: options, Help: help})
			if err != nil {
				return nil, err
			}
			out := make([]string, 0, len(picked))
			for _, i := range picked {
				out = append(out, field.Options[i].Value)
			}
			return out, nil
		}
		picked, err := s.driver.Select(ctx, SelectConfig{Message: message, Options: options, Help: help, DefaultIndex: -1})
		if err != nil {
			return nil, err
		}
		if picked < 0 || picked >= len(field.Options) {
			return []string{""}, nil
		}
		return []string{field.Options[picked].Value}, nil
	}

	switch field.InputType {
	case dca.InputCheckbox:
		ok, err := s.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: current == "1"})
		if err != nil {
			return nil, err
		}
		if ok {
			return []string{"1"}, nil
		}
		return []string{""}, nil
	case dca.InputPassword:
		v, err := s.driver.Password(ctx, InputConfig{Message: message, Help: help})
		return []string{v}, err
	case dca.InputTextarea:
		v, err := s.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: help, Default: current})
		return []string{v}, err
	default:
		v, err := s.driver.Input(ctx, InputConfig{Message: message, Help: help, Default: current})
		return []string{v}, err
	}
}

// fieldNames lists the fields that can be edited, sorted.
func fieldNames(table dca.TableSpec) []string {
	names := make([]string, 0, len(table.Fields))
	for name, field := range table.Fields {
		if field.Exclude {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func validateID(raw string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return fmt.Errorf("enter a record id (0 for a new record)")
	}
	return nil
}
