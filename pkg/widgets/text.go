package widgets

import (
	"strconv"
	"strings"
)

const scrollOffset = ` onfocus="Backend.getScrollOffset()"`

type textField struct {
	base
	password bool
}

func newTextField(attrs Attributes, env Env) Widget {
	return &textField{base: newBase(attrs, env)}
}

func newPasswordField(attrs Attributes, env Env) Widget {
	attrs.Multiple = false
	return &textField{base: newBase(attrs, env), password: true}
}

func (w *textField) Validate(in Input) {
	values := w.input(in)
	if w.attrs.Multiple {
		list := make([]string, 0, len(values))
		for _, value := range values {
			list = append(list, w.trim(value))
		}
		filled := w.checkList(list)
		for _, value := range filled {
			w.checkRgxp(value)
			if w.attrs.MaxLength > 0 && len([]rune(value)) > w.attrs.MaxLength {
				w.AddError(w.message("ERR.maxlength", w.attrs.Label, w.attrs.MaxLength))
			}
		}
		w.checkRule(list)
		w.finish(list)
		return
	}

	var raw string
	if len(values) > 0 {
		raw = values[0]
	}
	value := w.check(raw)
	w.checkRule(value)
	w.finish(value)
}

func (w *textField) Parse() string {
	if w.attrs.Multiple {
		return w.parse(w.multiple())
	}

	kind, class, value := "text", "tl_text", ValueString(w.value)
	if w.password {
		kind, class = "password", "tl_text tl_password"
		if value != "" {
			value = "*****"
		}
	}

	var b strings.Builder
	b.WriteString(`<input type="` + kind + `" name="` + attr(w.attrs.Name) + `" id="ctrl_` + attr(w.attrs.ID) + `"`)
	b.WriteString(` class="` + w.className(class) + `" value="` + attr(value) + `"`)
	b.WriteString(w.controlAttributes())
	b.WriteString(scrollOffset + ">")
	return w.parse(b.String())
}

func (w *textField) multiple() string {
	size := w.attrs.Size
	if size <= 0 {
		size = 2
	}
	values := ValueList(w.value)

	var b strings.Builder
	b.WriteString(`<div id="ctrl_` + attr(w.attrs.ID) + `" class="` + w.className("tl_text_field") + `">`)
	for i := 0; i < size; i++ {
		var value string
		if i < len(values) {
			value = values[i]
		}
		idx := strconv.Itoa(i)
		b.WriteString(`<input type="text" name="` + attr(w.attrs.Name) + `[]" id="ctrl_` + attr(w.attrs.ID) + "_" + idx + `"`)
		b.WriteString(` class="tl_text_` + strconv.Itoa(size) + `" value="` + attr(value) + `"`)
		b.WriteString(w.controlAttributes())
		b.WriteString(scrollOffset + ">")
	}
	b.WriteString("</div>")
	return b.String()
}

type textArea struct {
	base
}

func newTextArea(attrs Attributes, env Env) Widget {
	return &textArea{base: newBase(attrs, env)}
}

func (w *textArea) Validate(in Input) {
	var raw string
	if values := w.input(in); len(values) > 0 {
		raw = values[0]
	}
	value := w.check(raw)
	w.checkRule(value)
	w.finish(value)
}

func (w *textArea) Parse() string {
	var b strings.Builder
	b.WriteString(`<textarea name="` + attr(w.attrs.Name) + `" id="ctrl_` + attr(w.attrs.ID) + `"`)
	b.WriteString(` class="` + w.className("tl_textarea") + `" rows="12" cols="80"`)
	b.WriteString(w.controlAttributes())
	b.WriteString(scrollOffset + ">")
	b.WriteString(attr(ValueString(w.value)))
	b.WriteString("</textarea>")
	return w.parse(b.String())
}

type upload struct {
	base
}

func newUpload(attrs Attributes, env Env) Widget {
	return &upload{base: newBase(attrs, env)}
}

func (w *upload) Uploadable() bool { return true }

func (w *upload) Validate(in Input) {
	var name string
	if values := w.input(in); len(values) > 0 {
		name = values[0]
	}
	value := w.check(name)
	w.finish(value)
}

func (w *upload) Parse() string {
	control := `<input type="file" name="` + attr(w.attrs.Name) + `" id="ctrl_` + attr(w.attrs.ID) + `" class="` + w.className("tl_upload_field") + `"` + scrollOffset + ">"
	return w.parse(control)
}
