package widgets

import (
	"slices"
	"strconv"
	"strings"
)

type selectMenu struct {
	base
}

func newSelectMenu(attrs Attributes, env Env) Widget {
	return &selectMenu{base: newBase(attrs, env)}
}

func (w *selectMenu) Validate(in Input) {
	values := w.input(in)
	if w.attrs.Multiple {
		list := w.checkList(values)
		w.checkOptions(list)
		w.checkRule(list)
		w.finish(list)
		return
	}
	var raw string
	if len(values) > 0 {
		raw = values[0]
	}
	value := w.check(raw)
	w.checkOptions([]string{value})
	w.checkRule(value)
	w.finish(value)
}

func (w *selectMenu) Parse() string {
	current := ValueList(w.value)
	name := w.attrs.Name
	extra := ""
	if w.attrs.Multiple {
		name += "[]"
		extra = " multiple"
	}

	var b strings.Builder
	b.WriteString(`<select name="` + attr(name) + `" id="ctrl_` + attr(w.attrs.ID) + `" class="` + w.className("tl_select") + `"`)
	b.WriteString(extra + w.controlAttributes() + scrollOffset + ">\n")
	for _, opt := range w.attrs.Options {
		b.WriteString(`<option value="` + attr(opt.Value) + `"` + selected(slices.Contains(current, opt.Value)) + ">")
		b.WriteString(attr(opt.Label))
		b.WriteString("</option>\n")
	}
	b.WriteString("</select>")
	return w.parse(b.String())
}

type radioButtons struct {
	base
}

func newRadioButtons(attrs Attributes, env Env) Widget {
	return &radioButtons{base: newBase(attrs, env)}
}

func (w *radioButtons) Validate(in Input) {
	var raw string
	if values := w.input(in); len(values) > 0 {
		raw = values[0]
	}
	value := w.check(raw)
	w.checkOptions([]string{value})
	w.checkRule(value)
	w.finish(value)
}

func (w *radioButtons) Parse() string {
	current := ValueString(w.value)
	var b strings.Builder
	for i, opt := range w.attrs.Options {
		id := "opt_" + attr(w.attrs.ID) + "_" + strconv.Itoa(i)
		b.WriteString(`<input type="radio" name="` + attr(w.attrs.Name) + `" id="` + id + `" class="tl_radio" value="` + attr(opt.Value) + `"`)
		b.WriteString(checked(current == opt.Value) + w.controlAttributes() + scrollOffset + ">")
		b.WriteString(` <label for="` + id + `">` + attr(opt.Label) + "</label><br>\n")
	}
	return w.parseFieldset("tl_radio_container", b.String())
}

type checkBox struct {
	base
	wizard bool
}

func newCheckBox(attrs Attributes, env Env) Widget {
	return &checkBox{base: newBase(attrs, env)}
}

func newCheckBoxWizard(attrs Attributes, env Env) Widget {
	attrs.Multiple = true
	return &checkBox{base: newBase(attrs, env), wizard: true}
}

func (w *checkBox) Validate(in Input) {
	values := w.input(in)
	if !w.attrs.Multiple {
		var value string
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				value = "1"
			}
		}
		if value == "" && w.attrs.Mandatory {
			w.AddError(w.message("ERR.mandatory", w.attrs.Label))
		}
		w.checkRule(value)
		w.finish(value)
		return
	}

	list := w.checkList(values)
	w.checkOptions(list)
	w.checkRule(list)
	w.finish(list)
}

func (w *checkBox) Parse() string {
	if !w.attrs.Multiple {
		return w.single()
	}

	current := ValueList(w.value)
	var b strings.Builder
	b.WriteString(`<input type="hidden" name="` + attr(w.attrs.Name) + `" value="">` + "\n")
	for i, opt := range w.attrs.Options {
		id := "opt_" + attr(w.attrs.ID) + "_" + strconv.Itoa(i)
		if w.wizard {
			b.WriteString(`<span><input type="checkbox" name="` + attr(w.attrs.Name) + `[]" id="` + id + `" class="tl_checkbox" value="` + attr(opt.Value) + `"`)
			b.WriteString(checked(slices.Contains(current, opt.Value)) + scrollOffset + ">")
			b.WriteString(` <label for="` + id + `">` + attr(opt.Label) + "</label></span>\n")
			continue
		}
		b.WriteString(`<input type="checkbox" name="` + attr(w.attrs.Name) + `[]" id="` + id + `" class="tl_checkbox" value="` + attr(opt.Value) + `"`)
		b.WriteString(checked(slices.Contains(current, opt.Value)) + scrollOffset + ">")
		b.WriteString(` <label for="` + id + `">` + attr(opt.Label) + "</label><br>\n")
	}

	class := "tl_checkbox_container"
	if w.wizard {
		class = "tl_checkbox_container tl_checkbox_wizard"
	}
	return w.parseFieldset(class, b.String())
}

func (w *checkBox) single() string {
	id := "opt_" + attr(w.attrs.ID) + "_0"
	on := ValueString(w.value) != "" && ValueString(w.value) != "0"

	var b strings.Builder
	b.WriteString(`<div id="ctrl_` + attr(w.attrs.ID) + `" class="` + w.className("tl_checkbox_single_container") + `">`)
	b.WriteString(`<input type="hidden" name="` + attr(w.attrs.Name) + `" value="">`)
	b.WriteString(`<input type="checkbox" name="` + attr(w.attrs.Name) + `" id="` + id + `" class="tl_checkbox" value="1"`)
	b.WriteString(checked(on) + w.controlAttributes() + scrollOffset + ">")
	b.WriteString(` <label for="` + id + `">` + attr(w.attrs.Label) + "</label>")
	b.WriteString(w.attrs.XLabel)
	b.WriteString("</div>")
	b.WriteString(w.attrs.Wizard)
	b.WriteString(w.errorHTML())
	return b.String()
}
