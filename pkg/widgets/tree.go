package widgets

import (
	"slices"
	"strings"
)

// treeField selects records (pages or files) by id. The submitted value is
// a comma separated id list.
type treeField struct {
	base
	prefix string
}

func newFileTree(attrs Attributes, env Env) Widget {
	return &treeField{base: newBase(attrs, env), prefix: "ft_"}
}

func newPageTree(attrs Attributes, env Env) Widget {
	return &treeField{base: newBase(attrs, env), prefix: "pt_"}
}

// DCAFilter restricts the picker tree to the configured root nodes.
func (w *treeField) DCAFilter() Filter {
	return Filter{Root: slices.Clone(w.attrs.RootNodes)}
}

func (w *treeField) Validate(in Input) {
	var ids []string
	for _, value := range w.input(in) {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	ids = w.checkList(ids)
	w.checkRule(ids)

	if w.attrs.FieldType == "radio" {
		var value string
		if len(ids) > 0 {
			value = ids[0]
		}
		w.finish(value)
		return
	}
	w.finish(ids)
}

func (w *treeField) Parse() string {
	ids := ValueList(w.value)

	var b strings.Builder
	b.WriteString(`<input type="hidden" name="` + attr(w.attrs.Name) + `" id="ctrl_` + attr(w.attrs.ID) + `" value="` + attr(strings.Join(ids, ",")) + `">`)
	b.WriteString("\n" + `<div class="` + w.className("selector_container") + `">`)
	if len(ids) > 0 {
		b.WriteString(`<ul id="sort_` + attr(w.attrs.ID) + `">`)
		for _, id := range ids {
			b.WriteString(`<li data-id="` + attr(id) + `">` + attr(id) + "</li>")
		}
		b.WriteString("</ul>")
	}
	b.WriteString(`<p><a href="#" class="tl_submit" id="` + w.prefix + attr(w.attrs.ID) + `">`)
	b.WriteString(attr(w.env.Labels.Get("MSC.changeSelection")))
	b.WriteString("</a></p></div>")
	return w.parse(b.String())
}
