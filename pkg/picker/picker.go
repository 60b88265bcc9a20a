// Package picker initialises the record picker: the popup in which the list
// view of one table selects values for a field of another table.
//
// Init may narrow the sorting root of the listed table in the shared schema
// store when the target widget exposes a filter. The change persists for
// the lifetime of the store; hosts that need isolation pass a clone.
package picker

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/metrics"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

var (
	// ErrUnsupported reports a list table the picker menu does not serve.
	// Callers skip the picker; it is not a failure.
	ErrUnsupported = errors.New("picker: table not supported")
	// ErrInternal reports a target that does not resolve to a field.
	ErrInternal = errors.New("picker: internal error")
)

// TargetError names the unresolvable target field. It matches both
// ErrInternal and dca.ErrSchemaNotFound.
type TargetError struct {
	Table string
	Field string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("Target field %q does not exist.", e.Table+"."+e.Field)
}

func (e *TargetError) Unwrap() []error {
	return []error{ErrInternal, dca.ErrSchemaNotFound}
}

// Menu reports which tables can be browsed in the picker.
type Menu interface {
	SupportsTable(table string) bool
}

// Tables is a fixed Menu.
type Tables []string

// SupportsTable implements Menu.
func (t Tables) SupportsTable(table string) bool {
	return slices.Contains(t, table)
}

// Option customises a Picker.
type Option func(*Picker)

// WithLookup sets the record lookup used to attach the active record.
func WithLookup(lookup records.Lookup) Option {
	return func(p *Picker) {
		p.lookup = lookup
	}
}

// WithCallbacks sets the registry load callbacks resolve against.
func WithCallbacks(reg *callback.Registry) Option {
	return func(p *Picker) {
		p.callbacks = reg
	}
}

// WithWidgets sets the widget registry.
func WithWidgets(reg *widgets.Registry) Option {
	return func(p *Picker) {
		if reg != nil {
			p.widgets = reg
		}
	}
}

// WithMetrics records initialisation results.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Picker) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Picker) {
		p.logger = logger
	}
}

// Picker initialises picker contexts against a schema store.
type Picker struct {
	store     *dca.Store
	menu      Menu
	lookup    records.Lookup
	callbacks *callback.Registry
	widgets   *widgets.Registry
	metrics   *metrics.Collector
	logger    zerolog.Logger
}

// New returns a picker for the tables menu supports.
func New(store *dca.Store, menu Menu, opts ...Option) *Picker {
	p := &Picker{
		store:  store,
		menu:   menu,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.widgets == nil {
		p.widgets = widgets.NewRegistry()
	}
	return p
}

// Context is the state of one picker popup.
type Context struct {
	// Table is the listed table.
	Table string
	// TargetTable, Field and ID identify the field being filled.
	TargetTable string
	Field       string
	ID          int64
	FieldType   string
	// Selection is the current value after the load callbacks ran.
	Selection []string
	// Edit is the transient edit context handed to load callbacks.
	Edit *editing.EditContext
}

// Init prepares the picker listing table for target ("table.field.id")
// with the comma separated current value.
func (p *Picker) Init(ctx context.Context, table, target, value string) (*Context, error) {
	pc, err := p.init(ctx, table, target, value)
	switch {
	case errors.Is(err, ErrUnsupported):
		p.metrics.PickerInit("unsupported")
	case err != nil:
		p.metrics.PickerInit("error")
	default:
		p.metrics.PickerInit("ok")
	}
	return pc, err
}

func (p *Picker) init(ctx context.Context, table, target, value string) (*Context, error) {
	if p.menu == nil || !p.menu.SupportsTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, table)
	}

	targetTable, field, id := ParseTarget(target)
	pc := &Context{
		Table:       table,
		TargetTable: targetTable,
		Field:       field,
		ID:          id,
		Selection:   ParseValue(value),
	}
	log := p.logger.With().Str("table", table).Str("target", target).Logger()

	spec, err := p.store.Table(targetTable)
	if err != nil {
		return nil, &TargetError{Table: targetTable, Field: field}
	}
	fieldSpec, ok := spec.Field(field)
	if !ok {
		return nil, &TargetError{Table: targetTable, Field: field}
	}
	pc.FieldType = fieldSpec.Eval.FieldType

	dc := editing.NewEditContext(targetTable, field, id)
	if err := p.attachRecord(ctx, dc); err != nil {
		return nil, err
	}
	pc.Edit = dc

	loaded, err := editing.RunLoad(p.callbacks, fieldSpec, pc.Selection, dc)
	if err != nil {
		return nil, fmt.Errorf("picker: %w", err)
	}
	pc.Selection = widgets.ValueList(loaded)

	attrs := widgets.FromField(fieldSpec, field, pc.Selection, targetTable)
	widget, ok := p.widgets.Create(fieldSpec, attrs)
	if !ok {
		log.Debug().Str("input_type", fieldSpec.InputType).Msg("no widget for picker field")
		return pc, nil
	}
	if filterer, ok := widget.(widgets.Filterer); ok {
		if root := filterer.DCAFilter().Root; root != nil {
			switch err := p.store.SetSortingRoot(table, root); {
			case errors.Is(err, dca.ErrSchemaNotFound):
				log.Debug().Str("picker_table", table).Msg("picker table not declared, sorting root not narrowed")
			case err != nil:
				return nil, fmt.Errorf("picker: apply filter: %w", err)
			default:
				log.Debug().Ints64("root", root).Msg("sorting root narrowed")
			}
		}
	}
	return pc, nil
}

func (p *Picker) attachRecord(ctx context.Context, dc *editing.EditContext) error {
	if dc.ID == 0 || p.lookup == nil {
		return nil
	}
	exists, err := p.lookup.TableExists(ctx, dc.Table)
	if err != nil {
		return fmt.Errorf("picker: table lookup: %w", err)
	}
	if !exists {
		return nil
	}
	record, err := p.lookup.FindByPrimaryKey(ctx, dc.Table, dc.ID)
	switch {
	case errors.Is(err, records.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("picker: record lookup: %w", err)
	}
	dc.ActiveRecord = record
	return nil
}

// ParseTarget splits "table.field.id". Missing parts are empty, a missing
// or non-numeric id is zero.
func ParseTarget(target string) (table, field string, id int64) {
	parts := strings.SplitN(target, ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], leadingInt(parts[2])
}

// ParseValue splits a comma separated value and drops empty entries. An
// empty result is nil.
func ParseValue(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Attributes returns the attributes of the list container while a picker
// field is set.
func (c *Context) Attributes() string {
	if c == nil || c.Field == "" {
		return ""
	}
	return ` id="tl_select" data-table="` + html.EscapeString(c.Table) + `"`
}

// InputField returns the selection input of one listed record. Fields
// whose fieldType is neither checkbox nor radio have none.
func (c *Context) InputField(value, attributes string) string {
	if c == nil {
		return ""
	}
	id := value
	if !widgets.IsNumeric(value) {
		sum := md5.Sum([]byte(value))
		id = hex.EncodeToString(sum[:])
	}
	var checked string
	if slices.Contains(c.Selection, value) {
		checked = " checked"
	}

	switch c.FieldType {
	case "checkbox":
		return ` <input type="checkbox" name="` + c.Field + `[]" id="` + c.Field + "_" + id + `" class="tl_tree_checkbox" value="` + html.EscapeString(value) +
			`" onfocus="Backend.getScrollOffset()"` + checked + attributes + ">"
	case "radio":
		return ` <input type="radio" name="` + c.Field + `" id="` + c.Field + "_" + id + `" class="tl_tree_radio" value="` + html.EscapeString(value) +
			`" onfocus="Backend.getScrollOffset()"` + checked + attributes + ">"
	}
	return ""
}

// leadingInt mirrors an integer cast of a string: leading digits count,
// anything else yields zero.
func leadingInt(raw string) int64 {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && (raw[end] >= '0' && raw[end] <= '9' || end == 0 && raw[end] == '-') {
		end++
	}
	n, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
