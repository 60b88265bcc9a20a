package editing

import (
	"context"
	"crypto/md5"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dateformat"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/icon"
	"github.com/goliatone/go-dcaform/pkg/imaging"
	"github.com/goliatone/go-dcaform/pkg/inserttag"
	"github.com/goliatone/go-dcaform/pkg/labels"
	"github.com/goliatone/go-dcaform/pkg/metrics"
	"github.com/goliatone/go-dcaform/pkg/palette"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/render/template"
	"github.com/goliatone/go-dcaform/pkg/render/template/gotemplate"
	"github.com/goliatone/go-dcaform/pkg/submission"
	"github.com/goliatone/go-dcaform/pkg/urls"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

//go:embed templates/*.html5
var builtinTemplates embed.FS

// DefaultLanguage is passed to editor templates when none is configured.
const DefaultLanguage = "en"

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithMetrics records renders, validation failures and saves.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// WithLabels sets the translation table.
func WithLabels(table *labels.Table) Option {
	return func(r *Renderer) {
		if table != nil {
			r.labels = table
		}
	}
}

// WithCallbacks sets the registry schema callbacks resolve against.
func WithCallbacks(reg *callback.Registry) Option {
	return func(r *Renderer) {
		r.callbacks = reg
	}
}

// WithWidgets replaces the widget registry.
func WithWidgets(reg *widgets.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.widgets = reg
		}
	}
}

// WithRouter sets the router used for picker links.
func WithRouter(router *urls.Router) Option {
	return func(r *Renderer) {
		if router != nil {
			r.router = router
		}
	}
}

// WithTemplates replaces the engine rendering be_<editor> templates.
func WithTemplates(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.templates = engine
		}
	}
}

// WithInsertTags enables file reference conversion for tiny editors.
func WithInsertTags(conv *inserttag.Converter) Option {
	return func(r *Renderer) {
		r.inserttags = conv
	}
}

// WithImages enables the file preview.
func WithImages(svc *imaging.Service) Option {
	return func(r *Renderer) {
		r.images = svc
	}
}

// WithIcons sets the theme icons of wizards and decorations.
func WithIcons(icons *icon.Set) Option {
	return func(r *Renderer) {
		r.icons = icons
	}
}

// WithSaver sets the save hook. Without one accepted values are dropped.
func WithSaver(saver records.Saver) Option {
	return func(r *Renderer) {
		r.saver = saver
	}
}

// WithShowHelp toggles the help paragraphs.
func WithShowHelp(show bool) Option {
	return func(r *Renderer) {
		r.showHelp = show
	}
}

// WithFormats sets the date patterns the date picker uses.
func WithFormats(formats dateformat.Formats) Option {
	return func(r *Renderer) {
		r.formats = formats
	}
}

// WithLanguage sets the editor language.
func WithLanguage(lang string) Option {
	return func(r *Renderer) {
		if lang = strings.TrimSpace(lang); lang != "" {
			r.language = lang
		}
	}
}

// Renderer renders field rows of the tables in a schema store.
type Renderer struct {
	store      *dca.Store
	widgets    *widgets.Registry
	callbacks  *callback.Registry
	labels     *labels.Table
	router     *urls.Router
	templates  template.TemplateRenderer
	inserttags *inserttag.Converter
	images     *imaging.Service
	icons      *icon.Set
	saver      records.Saver
	metrics    *metrics.Collector
	logger     zerolog.Logger
	formats    dateformat.Formats
	showHelp   bool
	language   string
}

// New returns a renderer for the tables of store.
func New(store *dca.Store, opts ...Option) (*Renderer, error) {
	if store == nil {
		return nil, fmt.Errorf("editing: schema store is required")
	}
	r := &Renderer{
		store:    store,
		labels:   labels.New(),
		router:   urls.NewRouter(),
		logger:   zerolog.Nop(),
		formats:  dateformat.Defaults(),
		showHelp: true,
		language: DefaultLanguage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.widgets == nil {
		r.widgets = widgets.NewRegistry(widgets.WithLabels(r.labels), widgets.WithFormats(r.formats))
	}
	if r.templates == nil {
		sub, err := fs.Sub(builtinTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("editing: builtin templates: %w", err)
		}
		engine, err := gotemplate.New(gotemplate.WithFS(sub))
		if err != nil {
			return nil, fmt.Errorf("editing: template engine: %w", err)
		}
		r.templates = engine
	}
	return r, nil
}

// Store returns the schema store the renderer reads.
func (r *Renderer) Store() *dca.Store {
	return r.store
}

// Widgets returns the widget registry.
func (r *Renderer) Widgets() *widgets.Registry {
	return r.widgets
}

// Row renders the edit row of dc.Field and, when the current submission
// belongs to the table, validates and saves the submitted value.
//
// Validation and save failures do not return errors: they are attached to
// the widget and mark dc as NoReload. Excluded fields fail with an
// *AccessDeniedError before any widget exists.
func (r *Renderer) Row(ctx context.Context, dc *EditContext) (string, error) {
	start := time.Now()
	out, outcome, err := r.row(ctx, dc)
	if err != nil && outcome == "" {
		outcome = metrics.OutcomeError
	}
	r.metrics.ObserveRender(dc.Table, outcome, time.Since(start))
	return out, err
}

func (r *Renderer) row(ctx context.Context, dc *EditContext) (string, string, error) {
	table, err := r.store.Table(dc.Table)
	if err != nil {
		return "", "", err
	}
	field, ok := table.Field(dc.Field)
	if !ok {
		return "", "", fmt.Errorf("%w: field %q.%q", dca.ErrSchemaNotFound, dc.Table, dc.Field)
	}
	if field.Exclude {
		return "", metrics.OutcomeDenied, &AccessDeniedError{Table: dc.Table, Field: dc.Field}
	}
	if dc.InputName == "" {
		dc.InputName = dc.Field
	}
	if dc.Value == nil && dc.ActiveRecord != nil {
		dc.Value = dc.ActiveRecord.Get(dc.Field)
	}
	log := r.logger.With().Str("table", dc.Table).Str("field", dc.Field).Int64("id", dc.ID).Logger()

	xlabel, err := r.xlabel(dc, field)
	if err != nil {
		return "", "", err
	}

	if field.InputField != nil {
		fn, err := callback.As[InputFieldFunc](r.callbacks, *field.InputField)
		if err != nil {
			return "", "", fmt.Errorf("editing: input field callback of %s: %w", field.Name, err)
		}
		return fn(dc, xlabel), metrics.OutcomeCustom, nil
	}

	if !r.widgets.Has(field.InputType) {
		log.Debug().Str("input_type", field.InputType).Msg("no widget for input type")
		return "", metrics.OutcomeEmpty, nil
	}

	required := field.Eval.Mandatory && widgets.IsEmpty(dc.Value)

	if inserttag.Applies(field.Eval.RTE) {
		converted, err := r.inserttags.ToSrc(ctx, palette.Stringify(dc.Value))
		if err != nil {
			return "", "", fmt.Errorf("editing: convert insert tags: %w", err)
		}
		dc.Value = converted
	}

	attrs := widgets.FromField(field, dc.InputName, dc.Value, dc.Table)
	attrs.Required = required
	if useRawRequestData(table, field) {
		attrs.UseRawRequestData = true
	}
	attrs.XLabel = xlabel
	attrs.CurrentRecord = dc.ID
	attrs.Record = dc.ActiveRecord

	widget, ok := r.widgets.Create(field, attrs)
	if !ok {
		return "", metrics.OutcomeEmpty, nil
	}

	if req := dc.Request; req != nil && req.FormSubmit() == dc.Table {
		r.submit(ctx, log, dc, table, field, widget)
	}

	wizard, err := r.wizard(dc, field, widget)
	if err != nil {
		return "", "", err
	}
	widget.Attributes().Wizard = wizard.String()

	if up, ok := widget.(widgets.Uploadable); ok && up.Uploadable() {
		dc.uploadable = true
	}

	updateMode, err := r.updateMode(dc, field)
	if err != nil {
		return "", "", err
	}

	preview, err := r.preview(ctx, dc)
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString(preview.String())
	b.WriteString("\n<div")
	if class := rowClass(field); class != "" {
		b.WriteString(` class="` + class + `"`)
	}
	b.WriteString(">")
	b.WriteString(widget.Parse())
	b.WriteString(updateMode)
	if !widget.HasErrors() {
		b.WriteString(r.help(dc.Table, field, ""))
	}
	b.WriteString("\n</div>")
	return b.String(), metrics.OutcomeRendered, nil
}

// submit validates the widget when the field is part of the submitted
// palette and hands accepted values to the save hook.
func (r *Renderer) submit(ctx context.Context, log zerolog.Logger, dc *EditContext, table dca.TableSpec, field dca.FieldSpec, widget widgets.Widget) {
	req := dc.Request
	act := req.Action()
	batch := act == submission.ActEditAll
	suffix := recordSuffix(table, dc.ID)

	state := palette.State{Record: dc.ActiveRecord, Submitted: req, Submitting: true}
	if batch {
		state.Suffix = suffix
	}
	scope := palette.Evaluate(palette.Request{
		Table:       table,
		Field:       dc.Field,
		InputName:   dc.InputName,
		Stored:      palette.Stringify(dc.Value),
		Posted:      req.Value(dc.InputName),
		FormFields:  req.FormFields(submission.FormFieldsKey(batch, suffix)),
		Override:    dc.Palette,
		Suffix:      suffix,
		BatchEdit:   batch,
		Privileged:  dc.Privileged,
		OverrideAll: act == submission.ActOverrideAll,
		State:       state,
	})
	log.Debug().
		Strs("active", scope.Active).
		Bool("recomputed", scope.Recomputed).
		Bool("in_scope", scope.InScope).
		Msg("palette evaluated")
	if !scope.InScope {
		return
	}

	widget.Validate(req)

	if widget.HasErrors() {
		// Auto-submits of a still empty mandatory field do not block the form.
		if req.SubmitType() != submission.SubmitAuto || !widget.Attributes().Mandatory || !widgets.IsEmpty(widget.Value()) {
			dc.MarkNoReload()
		}
		r.metrics.ValidationFailed(dc.Table, dc.Field)
		log.Warn().Strs("errors", widget.Errors()).Msg("validation failed")
		return
	}
	if !widget.SubmitInput() {
		return
	}

	value, err := r.storageValue(ctx, field, widget.Value())
	if err == nil {
		err = r.save(ctx, dc, value)
	}
	r.metrics.Saved(dc.Table, err)
	if err != nil {
		dc.MarkNoReload()
		widget.AddError(err.Error())
		log.Warn().Err(err).Msg("save failed")
		return
	}
	dc.Value = value
}

// storageValue serializes list values and converts file paths back to
// insert tags for tiny editors.
func (r *Renderer) storageValue(ctx context.Context, field dca.FieldSpec, value any) (any, error) {
	switch value.(type) {
	case []string, []any, []int64, map[string]any, map[string]string:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("editing: serialize %s: %w", field.Name, err)
		}
		value = string(raw)
	}
	if s, ok := value.(string); ok && s != "" && inserttag.Applies(field.Eval.RTE) {
		return r.inserttags.FromSrc(ctx, s)
	}
	return value, nil
}

func (r *Renderer) save(ctx context.Context, dc *EditContext, value any) error {
	if r.saver == nil {
		r.logger.Debug().Str("table", dc.Table).Str("field", dc.Field).Msg("no save hook configured")
		return nil
	}
	return r.saver.Save(ctx, dc.Table, dc.Field, dc.ID, value)
}

// Help returns the help paragraph of the field. It is empty when help is
// disabled, for password fields and for fields without a help text.
func (r *Renderer) Help(dc *EditContext, class string) string {
	field, err := r.store.Field(dc.Table, dc.Field)
	if err != nil {
		return ""
	}
	return r.help(dc.Table, field, class)
}

func (r *Renderer) help(table string, field dca.FieldSpec, class string) string {
	text := field.Label.Help
	if !r.showHelp || field.InputType == dca.InputPassword || text == "" {
		return ""
	}
	return "\n  " + `<p class="tl_help tl_tip` + class + `">` + helpSanitizer().Sanitize(text) + "</p>"
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// helpSanitizer keeps formatting and links in help texts.
func helpSanitizer() *bluemonday.Policy {
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.UGCPolicy()
	})
	return helpPolicy
}

func useRawRequestData(table dca.TableSpec, field dca.FieldSpec) bool {
	if !table.Config.UseRawRequestData {
		return false
	}
	return field.Eval.UseRawRequestData == nil || *field.Eval.UseRawRequestData
}

// recordSuffix disambiguates the fields of one record in batch edit mode.
// Folder containers key records by path, so the id is hashed.
func recordSuffix(table dca.TableSpec, id int64) string {
	suffix := strconv.FormatInt(id, 10)
	if table.Config.DataContainer == "Folder" {
		sum := md5.Sum([]byte(suffix))
		return hex.EncodeToString(sum[:])
	}
	return suffix
}

func rowClass(field dca.FieldSpec) string {
	class := field.Eval.TLClass
	if field.InputType != dca.InputPassword {
		class += " widget"
	}
	switch {
	case field.InputType == dca.InputCheckbox && !field.Eval.Multiple && strings.Contains(class, "w50"):
		class += " cbx"
	case field.InputType == dca.InputText && field.Eval.Multiple && strings.Contains(class, "wizard"):
		class += " inline"
	}
	return strings.TrimSpace(class)
}
