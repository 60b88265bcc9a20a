package dca

import (
	"fmt"
	"strings"
)

// Well-known input types referenced by the renderer.
const (
	InputText           = "text"
	InputPassword       = "password"
	InputTextarea       = "textarea"
	InputCheckbox       = "checkbox"
	InputCheckboxWizard = "checkboxWizard"
	InputRadio          = "radio"
	InputSelect         = "select"
	InputFileTree       = "fileTree"
	InputPageTree       = "pageTree"
	InputUpload         = "upload"
)

// SelectorKey is the palettes entry listing the selector fields.
const SelectorKey = "__selector__"

// DefaultPalette is the palette used when no selector picks another one.
const DefaultPalette = "default"

// TableSpec is the typed schema of one table.
type TableSpec struct {
	Name             string
	Source           string
	Config           TableConfig
	Sorting          Sorting
	Operations       []Operation
	GlobalOperations []Operation
	Palettes         map[string]string
	Selectors        []string
	Subpalettes      map[string]string
	Fields           map[string]FieldSpec
}

// TableConfig carries table-wide flags.
type TableConfig struct {
	DataContainer     string
	UseRawRequestData bool
}

// Sorting describes the list view ordering. A non-empty Root restricts the
// tree to the listed ids and disables moving root-level records.
type Sorting struct {
	Mode int
	Root []int64
}

// Label is the (title, help text) pair attached to fields and operations.
type Label struct {
	Title string
	Help  string
}

// FieldSpec is the declaration of a single field.
type FieldSpec struct {
	Name       string
	Label      Label
	InputType  string
	Exclude    bool
	Eval       Eval
	Options    []Option
	XLabel     []Callback
	Wizard     []Callback
	InputField *Callback
	Load       []Callback
}

// Option is a selectable value for radio, select and checkbox widgets.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Eval groups the evaluation flags of a field.
type Eval struct {
	Mandatory         bool
	Multiple          bool
	ReadOnly          bool
	Rgxp              string
	MinLength         int
	MaxLength         int
	DatePicker        bool
	ColorPicker       bool
	SubmitOnChange    bool
	HelpWizard        bool
	RTE               string
	DCAPicker         *DCAPicker
	TLClass           string
	FieldType         string
	UseRawRequestData *bool
	DoNotSaveEmpty    bool
	Rule              string
	Size              int
	RootNodes         []int64
}

// DCAPicker configures the relation picker link. A nil pointer on Eval
// means the picker is disabled; an empty value means enabled with defaults.
type DCAPicker struct {
	Do      string
	Context string
	Icon    string
}

// Operation is a per-record or global button declaration.
type Operation struct {
	Key          string
	Label        Label
	Href         string
	Icon         string
	Class        string
	Attributes   string
	ShowOnSelect bool
	Button       *Callback
}

// IsMove reports whether the operation is the directional move pair.
func (o Operation) IsMove() bool {
	return o.Key == "move"
}

// Callback references a hook declared in the schema. Either Service and
// Method name a registered service method, or Func holds the function.
type Callback struct {
	Service string
	Method  string
	Func    any
}

// Invocable wraps a function as a callback.
func Invocable(fn any) Callback {
	return Callback{Func: fn}
}

// NamedMethod references a method of a registered service.
func NamedMethod(service, method string) Callback {
	return Callback{Service: strings.TrimSpace(service), Method: strings.TrimSpace(method)}
}

// IsZero reports whether the callback references nothing.
func (c Callback) IsZero() bool {
	return c.Func == nil && (c.Service == "" || c.Method == "")
}

func (c Callback) String() string {
	if c.Func != nil {
		return fmt.Sprintf("func(%T)", c.Func)
	}
	return c.Service + "::" + c.Method
}

// ParseCallback parses the "service::method" notation used in schema files.
func ParseCallback(raw string) (Callback, error) {
	service, method, ok := strings.Cut(strings.TrimSpace(raw), "::")
	if !ok || strings.TrimSpace(service) == "" || strings.TrimSpace(method) == "" {
		return Callback{}, fmt.Errorf("dca: invalid callback reference %q (want service::method)", raw)
	}
	return NamedMethod(service, method), nil
}

// Field returns the declaration of the named field.
func (t TableSpec) Field(name string) (FieldSpec, bool) {
	field, ok := t.Fields[name]
	return field, ok
}

// IsSelector reports whether the field is declared as a selector.
func (t TableSpec) IsSelector(field string) bool {
	for _, name := range t.Selectors {
		if name == field {
			return true
		}
	}
	return false
}

func (t TableSpec) clone() TableSpec {
	out := t
	if t.Sorting.Root != nil {
		out.Sorting.Root = append([]int64(nil), t.Sorting.Root...)
	}
	return out
}
