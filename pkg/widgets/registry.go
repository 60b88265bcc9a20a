package widgets

import (
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-dcaform/pkg/dateformat"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/labels"
	"github.com/goliatone/go-dcaform/pkg/rules"
)

// Constructor builds a widget from its attributes.
type Constructor func(attrs Attributes, env Env) Widget

// Option customises a Registry.
type Option func(*Registry)

// WithLabels sets the translation table used for messages and labels.
func WithLabels(table *labels.Table) Option {
	return func(r *Registry) {
		if table != nil {
			r.env.Labels = table
		}
	}
}

// WithRules sets the engine evaluating eval.rule expressions.
func WithRules(engine *rules.Engine) Option {
	return func(r *Registry) {
		if engine != nil {
			r.env.Rules = engine
		}
	}
}

// WithFormats sets the date/time patterns used for rgxp validation.
func WithFormats(formats dateformat.Formats) Option {
	return func(r *Registry) {
		r.env.Formats = formats
	}
}

// Registry maps input types to widget constructors. Unknown input types
// resolve to nothing, which callers render as an empty contribution.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
	env   Env
}

// NewRegistry constructs a registry with the built-in widgets registered.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		ctors: make(map[string]Constructor),
		env: Env{
			Labels:  labels.New(),
			Rules:   rules.NewEngine(),
			Formats: dateformat.Defaults(),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	reg.registerBuiltins()
	return reg
}

// Register binds a constructor to an input type, replacing any previous one.
func (r *Registry) Register(inputType string, ctor Constructor) {
	if r == nil || ctor == nil {
		return
	}
	trimmed := strings.TrimSpace(inputType)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[trimmed] = ctor
}

// Has reports whether an input type resolves to a widget.
func (r *Registry) Has(inputType string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[inputType]
	return ok
}

// Types returns the registered input types, sorted.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Env returns the shared widget collaborators.
func (r *Registry) Env() Env {
	if r == nil {
		return Env{Formats: dateformat.Defaults()}
	}
	return r.env
}

// Create builds the widget for field. The boolean is false when the input
// type has no implementation; that is the empty marker, not an error.
func (r *Registry) Create(field dca.FieldSpec, attrs Attributes) (Widget, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	ctor, ok := r.ctors[field.InputType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(attrs, r.env), true
}

func (r *Registry) registerBuiltins() {
	r.ctors[dca.InputText] = newTextField
	r.ctors[dca.InputPassword] = newPasswordField
	r.ctors[dca.InputTextarea] = newTextArea
	r.ctors[dca.InputSelect] = newSelectMenu
	r.ctors[dca.InputRadio] = newRadioButtons
	r.ctors[dca.InputCheckbox] = newCheckBox
	r.ctors[dca.InputCheckboxWizard] = newCheckBoxWizard
	r.ctors[dca.InputFileTree] = newFileTree
	r.ctors[dca.InputPageTree] = newPageTree
	r.ctors[dca.InputUpload] = newUpload
}
