package widgets

import (
	"html"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-dcaform/pkg/dateformat"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/labels"
	"github.com/goliatone/go-dcaform/pkg/rules"
)

// Input exposes submitted form values. Post returns sanitised values,
// PostRaw the untouched request data.
type Input interface {
	Post(name string) ([]string, bool)
	PostRaw(name string) ([]string, bool)
}

// Widget renders one form control and validates its submitted value.
type Widget interface {
	Attributes() *Attributes
	Validate(in Input)
	HasErrors() bool
	Errors() []string
	AddError(msg string)
	Value() any
	SubmitInput() bool
	Parse() string
}

// Uploadable is implemented by widgets that need a multipart form.
type Uploadable interface {
	Uploadable() bool
}

// Filter narrows the list view of the table a picker browses.
type Filter struct {
	Root []int64
}

// Filterer is implemented by widgets that restrict the picker tree.
type Filterer interface {
	DCAFilter() Filter
}

// Env carries the collaborators shared by all widgets of a registry.
type Env struct {
	Labels  *labels.Table
	Rules   *rules.Engine
	Formats dateformat.Formats
}

type base struct {
	attrs  Attributes
	env    Env
	errors []string
	value  any
	submit bool
}

func newBase(attrs Attributes, env Env) base {
	return base{attrs: attrs, env: env, value: attrs.Value}
}

func (b *base) Attributes() *Attributes { return &b.attrs }

func (b *base) HasErrors() bool { return len(b.errors) > 0 }

func (b *base) Errors() []string { return slices.Clone(b.errors) }

func (b *base) AddError(msg string) {
	b.errors = append(b.errors, msg)
}

func (b *base) Value() any { return b.value }

func (b *base) SubmitInput() bool { return b.submit }

func (b *base) input(in Input) []string {
	if in == nil {
		return nil
	}
	var (
		values []string
		ok     bool
	)
	if b.attrs.UseRawRequestData {
		values, ok = in.PostRaw(b.attrs.Name)
	} else {
		values, ok = in.Post(b.attrs.Name)
	}
	if !ok {
		return nil
	}
	return values
}

// finish stores the checked value so rejected input is shown again.
// Nothing is submitted after an error, for read-only fields or for empty
// values flagged doNotSaveEmpty.
func (b *base) finish(value any) {
	b.value = value
	if b.HasErrors() {
		return
	}
	b.submit = !b.attrs.ReadOnly && !(b.attrs.DoNotSaveEmpty && IsEmpty(value))
}

func (b *base) message(key string, args ...any) string {
	return b.env.Labels.Format(key, args...)
}

// trim strips surrounding whitespace unless the field reads raw request data.
func (b *base) trim(value string) string {
	if b.attrs.UseRawRequestData {
		return value
	}
	return strings.TrimSpace(value)
}

func (b *base) check(value string) string {
	value = b.trim(value)
	if strings.TrimSpace(value) == "" {
		if b.attrs.Mandatory {
			b.AddError(b.message("ERR.mandatory", b.attrs.Label))
		}
		return ""
	}

	length := utf8.RuneCountInString(value)
	if b.attrs.MinLength > 0 && length < b.attrs.MinLength {
		b.AddError(b.message("ERR.minlength", b.attrs.Label, b.attrs.MinLength))
	}
	if b.attrs.MaxLength > 0 && length > b.attrs.MaxLength {
		b.AddError(b.message("ERR.maxlength", b.attrs.Label, b.attrs.MaxLength))
	}
	b.checkRgxp(value)
	return value
}

func (b *base) checkList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = b.trim(value); strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 && b.attrs.Mandatory {
		b.AddError(b.message("ERR.mandatory", b.attrs.Label))
	}
	return out
}

func (b *base) checkOptions(values []string) {
	if len(b.attrs.Options) == 0 {
		return
	}
	for _, value := range values {
		if value == "" {
			continue
		}
		if !slices.ContainsFunc(b.attrs.Options, func(opt dca.Option) bool { return opt.Value == value }) {
			b.AddError(b.message("ERR.invalid", b.attrs.Label))
			return
		}
	}
}

var rgxpPatterns = map[string]*regexp.Regexp{
	"digit":    regexp.MustCompile(`^-?\d+(\.\d+)?$`),
	"natural":  regexp.MustCompile(`^\d+$`),
	"alpha":    regexp.MustCompile(`^[\pL .-]+$`),
	"alnum":    regexp.MustCompile(`^[\pL\pN ._-]+$`),
	"email":    regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	"url":      regexp.MustCompile(`^[a-zA-Z0-9.+/?#%:,;{}()\[\]@&=~_-]*$`),
	"alias":    regexp.MustCompile(`^[\pN\pL._/-]+$`),
	"colorRgb": regexp.MustCompile(`(?i)^[0-9a-f]{6}$`),
}

var rgxpMessages = map[string]string{
	"digit":    "ERR.digit",
	"natural":  "ERR.natural",
	"alpha":    "ERR.alpha",
	"alnum":    "ERR.alnum",
	"email":    "ERR.email",
	"url":      "ERR.url",
	"colorRgb": "ERR.colorRgb",
}

func (b *base) checkRgxp(value string) {
	switch b.attrs.Rgxp {
	case "":
		return
	case "date", "time", "datim":
		pattern := b.env.Formats.For(b.attrs.Rgxp)
		if !dateformat.Valid(pattern, value) {
			key := map[string]string{"date": "ERR.date", "time": "ERR.time", "datim": "ERR.dateTime"}[b.attrs.Rgxp]
			b.AddError(b.message(key, pattern))
		}
		return
	case "alias":
		if !rgxpPatterns["alias"].MatchString(value) {
			b.AddError(b.message("ERR.alias", b.attrs.Label))
		}
		return
	}
	pattern, ok := rgxpPatterns[b.attrs.Rgxp]
	if !ok {
		return
	}
	if !pattern.MatchString(value) {
		b.AddError(b.message(rgxpMessages[b.attrs.Rgxp]))
	}
}

func (b *base) checkRule(value any) {
	if b.attrs.Rule == "" || b.HasErrors() || b.env.Rules == nil {
		return
	}
	ok, err := b.env.Rules.Eval(b.attrs.Rule, rules.Input{
		Field:  b.attrs.Field,
		Value:  value,
		Record: b.attrs.Record,
	})
	if err != nil {
		b.AddError(err.Error())
		return
	}
	if !ok {
		b.AddError(b.message("ERR.rule", b.attrs.Label))
	}
}

func (b *base) className(class string) string {
	if b.HasErrors() {
		class += " error"
	}
	if b.attrs.Class != "" {
		class += " " + b.attrs.Class
	}
	return class
}

func (b *base) controlAttributes() string {
	var out strings.Builder
	if b.attrs.Required {
		out.WriteString(" required")
	}
	if b.attrs.ReadOnly {
		out.WriteString(" readonly")
	}
	if b.attrs.MaxLength > 0 {
		out.WriteString(` maxlength="` + strconv.Itoa(b.attrs.MaxLength) + `"`)
	}
	if b.attrs.SubmitOnChange {
		out.WriteString(` onchange="Backend.autoSubmit('` + html.EscapeString(b.attrs.Table) + `')"`)
	}
	return out.String()
}

func (b *base) label(withFor bool) string {
	var out strings.Builder
	out.WriteString("<label")
	if withFor {
		out.WriteString(` for="ctrl_` + html.EscapeString(b.attrs.ID) + `"`)
	}
	if b.attrs.Required {
		out.WriteString(` class="mandatory"`)
		out.WriteString(`><span class="invisible">` + html.EscapeString(b.env.Labels.Get("MSC.mandatory")) + " </span>")
	} else {
		out.WriteString(">")
	}
	out.WriteString(html.EscapeString(b.attrs.Label))
	if b.attrs.Required {
		out.WriteString(`<span class="mandatory">*</span>`)
	}
	out.WriteString("</label>")
	return out.String()
}

func (b *base) errorHTML() string {
	if !b.HasErrors() {
		return ""
	}
	return "\n" + `<p class="tl_error">` + html.EscapeString(b.errors[0]) + "</p>"
}

// parse wraps a control in the heading/label block used by single inputs.
func (b *base) parse(control string) string {
	return "<h3>" + b.label(true) + b.attrs.XLabel + "</h3>\n" + control + b.attrs.Wizard + b.errorHTML()
}

// parseFieldset is used by option lists that carry their label in a legend.
func (b *base) parseFieldset(class, body string) string {
	var out strings.Builder
	out.WriteString(`<fieldset id="ctrl_` + html.EscapeString(b.attrs.ID) + `" class="` + b.className(class) + `">`)
	out.WriteString("<legend>" + b.label(false) + "</legend>" + b.attrs.XLabel + "\n")
	out.WriteString(body)
	out.WriteString("</fieldset>")
	out.WriteString(b.attrs.Wizard)
	out.WriteString(b.errorHTML())
	return out.String()
}

func attr(value string) string {
	return html.EscapeString(value)
}

func checked(ok bool) string {
	if ok {
		return " checked"
	}
	return ""
}

func selected(ok bool) string {
	if ok {
		return " selected"
	}
	return ""
}
