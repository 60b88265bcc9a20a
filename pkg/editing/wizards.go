package editing

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dateformat"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/imaging"
	"github.com/goliatone/go-dcaform/pkg/palette"
	"github.com/goliatone/go-dcaform/pkg/submission"
	"github.com/goliatone/go-dcaform/pkg/urls"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

// xlabel builds the decorations shown next to the field label.
func (r *Renderer) xlabel(dc *EditContext, field dca.FieldSpec) (string, error) {
	var b strings.Builder

	if field.InputType == dca.InputTextarea && field.Eval.RTE == "" {
		wrap := r.labels.Get("MSC.wordWrap")
		b.WriteString(" " + r.icons.HTML("wrap.svg", wrap, `title="`+html.EscapeString(wrap)+`" class="toggleWrap" onclick="Backend.toggleWrap('ctrl_`+dc.InputName+`')"`))
	}

	if field.Eval.HelpWizard {
		title := r.labels.Get("MSC.helpWizard")
		b.WriteString(` <a href="contao/help.php?table=` + dc.Table + `&amp;field=` + dc.Field + `"`)
		b.WriteString(` title="` + html.EscapeString(title) + `"`)
		b.WriteString(` onclick="Backend.openModalIframe({'title':'` + jsLabel(field.Label.Title) + `','url':this.href});return false">`)
		b.WriteString(r.icons.HTML("about.svg", title, `style="vertical-align:text-bottom"`))
		b.WriteString("</a>")
	}

	for _, cb := range field.XLabel {
		fn, err := callback.As[XLabelFunc](r.callbacks, cb)
		if err != nil {
			return "", fmt.Errorf("editing: xlabel callback of %s: %w", field.Name, err)
		}
		b.WriteString(fn(dc))
	}
	return b.String(), nil
}

// wizard assembles the fragments shown after the control: date picker,
// color picker, relation picker and custom wizards, in that order.
func (r *Renderer) wizard(dc *EditContext, field dca.FieldSpec, widget widgets.Widget) (*Fragments, error) {
	var out Fragments
	eval := field.Eval

	if eval.DatePicker {
		out.Add(r.datePicker(dc, eval, widget.Attributes().ID))
	}
	if eval.ColorPicker {
		out.Add(r.colorPicker(dc, eval))
	}
	if eval.DCAPicker != nil {
		frag, err := r.dcaPicker(dc, field)
		if err != nil {
			return nil, err
		}
		out.Add(frag)
	}
	for _, cb := range field.Wizard {
		fn, err := callback.As[WizardFunc](r.callbacks, cb)
		if err != nil {
			return nil, fmt.Errorf("editing: wizard callback of %s: %w", field.Name, err)
		}
		out.AddMarkup(fn(dc))
	}
	return &out, nil
}

func (r *Renderer) datePicker(dc *EditContext, eval dca.Eval, id string) Fragment {
	format := dateformat.ToJS(r.formats.For(eval.Rgxp))

	var timeOption string
	switch eval.Rgxp {
	case "datim":
		timeOption = ",\n        timePicker: true"
	case "time":
		timeOption = ",\n        pickOnly: \"time\""
	}

	var onSelect string
	if eval.SubmitOnChange {
		onSelect = ",\n        onSelect: function() { Backend.autoSubmit(\"" + dc.Table + "\"); }"
	}

	markup := " " + r.icons.HTML("assets/datepicker/images/icon.svg", "", `title="`+html.EscapeString(r.labels.Get("MSC.datepicker"))+`" id="toggle_`+id+`" style="cursor:pointer"`)
	script := "\n  <script>\n" +
		"    window.addEvent(\"domready\", function() {\n" +
		"      new Picker.Date($(\"ctrl_" + id + "\"), {\n" +
		"        draggable: false,\n" +
		"        toggle: $(\"toggle_" + id + "\"),\n" +
		"        format: \"" + format + "\",\n" +
		"        positionOffset: {x:-211,y:-209}" + timeOption + ",\n" +
		"        pickerClass: \"datepicker_bootstrap\",\n" +
		"        useFadeInOut: !Browser.ie" + onSelect + ",\n" +
		"        startDay: " + r.labels.Get("MSC.weekOffset") + ",\n" +
		"        titleFormat: \"" + r.labels.Get("MSC.titleFormat") + "\"\n" +
		"      });\n" +
		"    });\n" +
		"  </script>"
	return Fragment{Markup: markup, Script: script}
}

func (r *Renderer) colorPicker(dc *EditContext, eval dca.Eval) Fragment {
	key := dc.Field
	if eval.Multiple {
		key += "_0"
	}
	title := r.labels.Get("MSC.colorpicker")

	markup := " " + r.icons.HTML("pickcolor.svg", title, `title="`+html.EscapeString(title)+`" id="moo_`+dc.Field+`" style="cursor:pointer"`)
	script := "\n  <script>\n" +
		"    window.addEvent(\"domready\", function() {\n" +
		"      var cl = $(\"ctrl_" + key + "\").value.hexToRgb(true) || [255, 0, 0];\n" +
		"      new MooRainbow(\"moo_" + dc.Field + "\", {\n" +
		"        id: \"ctrl_" + key + "\",\n" +
		"        startColor: cl,\n" +
		"        imgPath: \"assets/colorpicker/images/\",\n" +
		"        onComplete: function(color) {\n" +
		"          $(\"ctrl_" + key + "\").value = color.hex.replace(\"#\", \"\");\n" +
		"        }\n" +
		"      });\n" +
		"    });\n" +
		"  </script>"
	return Fragment{Markup: markup, Script: script}
}

// PickerParams returns the query of the picker popup for a field, in the
// order do, context, target, value, popup.
func PickerParams(dc *EditContext, picker dca.DCAPicker) []urls.Param {
	var params []urls.Param
	if picker.Do != "" {
		params = append(params, urls.Param{Key: "do", Value: picker.Do})
	}
	pickerContext := picker.Context
	if pickerContext == "" {
		pickerContext = "link"
	}
	return append(params,
		urls.Param{Key: "context", Value: pickerContext},
		urls.Param{Key: "target", Value: dc.Table + "." + dc.Field + "." + strconv.FormatInt(dc.ID, 10)},
		urls.Param{Key: "value", Value: palette.Stringify(dc.Value)},
		urls.Param{Key: "popup", Value: "1"},
	)
}

func (r *Renderer) dcaPicker(dc *EditContext, field dca.FieldSpec) (Fragment, error) {
	picker := *field.Eval.DCAPicker
	href, err := r.router.Generate(urls.PickerRoute, PickerParams(dc, picker)...)
	if err != nil {
		return Fragment{}, fmt.Errorf("editing: picker link of %s: %w", field.Name, err)
	}
	src := picker.Icon
	if src == "" {
		src = "pickpage.svg"
	}
	title := r.labels.Get("MSC.pagepicker")

	markup := ` <a href="` + ampersand(href) + `" title="` + html.EscapeString(title) + `" id="pp_` + dc.Field + `">` + r.icons.HTML(src, title, "") + "</a>"
	script := "\n  <script>\n" +
		"    $(\"pp_" + dc.Field + "\").addEvent(\"click\", function(e) {\n" +
		"      e.preventDefault();\n" +
		"      Backend.openModalSelector({\n" +
		"        \"title\": \"" + jsLabel(field.Label.Title) + "\",\n" +
		"        \"url\": this.href,\n" +
		"        \"callback\": function(table, value) {\n" +
		"          new Request.Contao({\n" +
		"            evalScripts: false,\n" +
		"            onSuccess: function(txt, json) {\n" +
		"              $(\"ctrl_" + dc.InputName + "\").value = (json.tag || json.content);\n" +
		"              this.set(\"href\", this.get(\"href\").replace(/&value=[^&]*/, \"&value=\" + (json.tag || json.content)));\n" +
		"            }.bind(this)\n" +
		"          }).post({\"action\":\"processPickerSelection\", \"table\":table, \"value\":value.join(\",\"), \"REQUEST_TOKEN\":\"" + dc.Token + "\"});\n" +
		"        }.bind(this)\n" +
		"      });\n" +
		"    });\n" +
		"  </script>"
	return Fragment{Markup: markup, Script: script}, nil
}

// updateMode renders the editor container of rte fields or, for multiple
// checkboxes in override-all mode, the add/remove/replace radio group.
func (r *Renderer) updateMode(dc *EditContext, field dca.FieldSpec) (string, error) {
	if rte := field.Eval.RTE; rte != "" {
		file, kind, _ := strings.Cut(rte, "|")
		out, err := r.templates.RenderTemplate("be_"+file, map[string]any{
			"selector": "ctrl_" + dc.InputName,
			"type":     kind,
			"source":   dc.Table + "." + strconv.FormatInt(dc.ID, 10),
			"language": r.language,
		})
		if err != nil {
			return "", fmt.Errorf("editing: editor template of %s: %w", field.Name, err)
		}
		return out, nil
	}

	multiCheckbox := field.InputType == dca.InputCheckbox || field.InputType == dca.InputCheckboxWizard
	if dc.Action() != submission.ActOverrideAll || !multiCheckbox || !field.Eval.Multiple {
		return "", nil
	}

	name := dc.InputName
	option := func(idx, value, label, extra string) string {
		id := "opt_" + name + "_update_" + idx
		return `    <input type="radio" name="` + name + `_update" id="` + id + `" class="tl_radio" value="` + value + `"` + extra +
			` onfocus="Backend.getScrollOffset()"> <label for="` + id + `">` + label + "</label>"
	}
	return "\n</div>\n<div class=\"widget\">\n" +
		"  <fieldset class=\"tl_radio_container\">\n" +
		"  <legend>" + r.labels.Get("MSC.updateMode") + "</legend>\n" +
		option("1", "add", r.labels.Get("MSC.updateAdd"), "") + "<br>\n" +
		option("2", "remove", r.labels.Get("MSC.updateRemove"), "") + "<br>\n" +
		option("0", "replace", r.labels.Get("MSC.updateReplace"), ` checked="checked"`) + "\n" +
		"  </fieldset>", nil
}

// preview renders the image preview of a file record's name field.
func (r *Renderer) preview(ctx context.Context, dc *EditContext) (Fragment, error) {
	if r.images == nil || dc.Table != "tl_files" || dc.Field != "name" || dc.ActiveRecord == nil {
		return Fragment{}, nil
	}
	if palette.Stringify(dc.ActiveRecord.Get("type")) != "file" {
		return Fragment{}, nil
	}
	path := palette.Stringify(dc.ActiveRecord.Get("path"))
	if !imaging.IsImage(path) {
		return Fragment{}, nil
	}

	img, err := r.images.Preview(ctx, path)
	if err != nil {
		return Fragment{}, fmt.Errorf("editing: preview of %s: %w", path, err)
	}
	ctrl := img.ControlID()

	markup := "\n" + `<div id="` + ctrl + `" class="tl_edit_preview" data-original-width="` + strconv.Itoa(img.OriginalWidth) +
		`" data-original-height="` + strconv.Itoa(img.OriginalHeight) + `">` + "\n" +
		`  <img src="` + img.DataURI + `" width="` + strconv.Itoa(img.Width) + `" height="` + strconv.Itoa(img.Height) + `" alt="">` + "\n" +
		"</div>"
	if img.Placeholder {
		return Fragment{Markup: markup}, nil
	}

	script := "<script>Backend.editPreviewWizard($('" + ctrl + "'));</script>"
	var help string
	if r.showHelp {
		help = `<p class="tl_help tl_tip">` + r.labels.Get(dc.Table+".edit_preview_help") + "</p>"
	}
	return Fragment{Markup: `<div class="widget">` + markup, Script: script + help + "</div>"}, nil
}

// jsLabel escapes a label for a single quoted script string inside an
// attribute.
func jsLabel(label string) string {
	return html.EscapeString(strings.ReplaceAll(label, "'", `\'`))
}

func ampersand(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "&amp;", "&"), "&", "&amp;")
}
