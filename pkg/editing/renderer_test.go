package editing_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/icon"
	"github.com/goliatone/go-dcaform/pkg/imaging"
	"github.com/goliatone/go-dcaform/pkg/inserttag"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/submission"
	"github.com/goliatone/go-dcaform/pkg/testsupport"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

type saveCall struct {
	Table string
	Field string
	ID    int64
	Value any
}

// recorder is a save hook that records every call and fails with err.
type recorder struct {
	calls []saveCall
	err   error
}

func (r *recorder) Save(_ context.Context, table, field string, id int64, value any) error {
	r.calls = append(r.calls, saveCall{table, field, id, value})
	return r.err
}

func newRenderer(t *testing.T, store *dca.Store, opts ...editing.Option) *editing.Renderer {
	t.Helper()
	if store == nil {
		store = testsupport.LoadStore(t)
	}
	r, err := editing.New(store, opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

// post builds a submission for table with the given form pairs.
func post(act string, pairs ...string) *submission.Request {
	form := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		form.Add(pairs[i], pairs[i+1])
	}
	query := url.Values{}
	if act != "" {
		query.Set("act", act)
	}
	return submission.New(form, query)
}

func row(t *testing.T, r *editing.Renderer, dc *editing.EditContext) string {
	t.Helper()
	out, err := r.Row(context.Background(), dc)
	if err != nil {
		t.Fatalf("row %s.%s: %v", dc.Table, dc.Field, err)
	}
	return out
}

func TestRow_ExcludedField(t *testing.T) {
	var constructed int
	reg := widgets.NewRegistry()
	reg.Register(dca.InputText, func(widgets.Attributes, widgets.Env) widgets.Widget {
		constructed++
		return nil
	})
	r := newRenderer(t, nil, editing.WithWidgets(reg))

	dc := editing.NewEditContext("tl_member", "secret", 1)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "secret", "secret", "x")
	out, err := r.Row(context.Background(), dc)
	if !errors.Is(err, editing.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied, got %v", err)
	}
	var denied *editing.AccessDeniedError
	if !errors.As(err, &denied) || denied.Table != "tl_member" || denied.Field != "secret" {
		t.Fatalf("unexpected error %#v", err)
	}
	if got := err.Error(); got != `Field "tl_member.secret" is excluded from being edited.` {
		t.Fatalf("unexpected message %q", got)
	}
	if out != "" || constructed != 0 {
		t.Fatalf("excluded field rendered %q with %d widgets", out, constructed)
	}
}

func TestRow_ValueFromActiveRecord(t *testing.T) {
	r := newRenderer(t, nil)

	secret := editing.NewEditContext("tl_member", "secret", 3)
	secret.ActiveRecord = records.Record{"secret": "hunter2"}
	if _, err := r.Row(context.Background(), secret); !errors.Is(err, editing.ErrAccessDenied) {
		t.Fatalf("want ErrAccessDenied, got %v", err)
	}
	if secret.Value != nil {
		t.Fatalf("excluded value read: %v", secret.Value)
	}

	name := editing.NewEditContext("tl_member", "name", 3)
	name.ActiveRecord = records.Record{"name": "Jane"}
	if out := row(t, r, name); !strings.Contains(out, `value="Jane"`) {
		t.Fatalf("stored value missing: %s", out)
	}
	if name.Value != "Jane" {
		t.Fatalf("context value = %v, want Jane", name.Value)
	}
}

func TestRow_UnknownField(t *testing.T) {
	r := newRenderer(t, nil)
	_, err := r.Row(context.Background(), editing.NewEditContext("tl_member", "nope", 1))
	if !errors.Is(err, dca.ErrSchemaNotFound) {
		t.Fatalf("want ErrSchemaNotFound, got %v", err)
	}
	_, err = r.Row(context.Background(), editing.NewEditContext("tl_nope", "name", 1))
	if !errors.Is(err, dca.ErrSchemaNotFound) {
		t.Fatalf("want ErrSchemaNotFound for table, got %v", err)
	}
}

func TestRow_UnknownWidgetIsEmpty(t *testing.T) {
	r := newRenderer(t, nil)
	out, err := r.Row(context.Background(), editing.NewEditContext("tl_member", "legacy", 1))
	if err != nil || out != "" {
		t.Fatalf("want empty contribution, got %q, %v", out, err)
	}
}

func TestRow_RequiredOnlyWhenMandatoryAndEmpty(t *testing.T) {
	store := dca.NewStore(dca.TableSpec{
		Name:     "tl_test",
		Palettes: map[string]string{"default": "title,tags"},
		Fields: map[string]dca.FieldSpec{
			"title": {Name: "title", InputType: "spy", Eval: dca.Eval{Mandatory: true, ReadOnly: true}},
			"tags":  {Name: "tags", InputType: "spy", Eval: dca.Eval{Mandatory: true, Multiple: true}},
			"note":  {Name: "note", InputType: "spy"},
		},
	})
	builtin := widgets.NewRegistry()
	var captured widgets.Attributes
	reg := widgets.NewRegistry()
	reg.Register("spy", func(attrs widgets.Attributes, _ widgets.Env) widgets.Widget {
		captured = attrs
		w, _ := builtin.Create(dca.FieldSpec{InputType: dca.InputText}, attrs)
		return w
	})
	r := newRenderer(t, store, editing.WithWidgets(reg))

	tests := []struct {
		field string
		value any
		want  bool
	}{
		{"title", "", true},
		{"title", nil, true},
		{"title", "x", false},
		{"tags", []string{}, true},
		{"tags", []string{"a"}, false},
		{"note", "", false},
	}
	for _, tt := range tests {
		dc := editing.NewEditContext("tl_test", tt.field, 1)
		dc.Value = tt.value
		row(t, r, dc)
		if captured.Required != tt.want {
			t.Errorf("%s=%#v: required %v, want %v", tt.field, tt.value, captured.Required, tt.want)
		}
	}
}

func TestHelp(t *testing.T) {
	r := newRenderer(t, nil)
	if got, want := r.Help(editing.NewEditContext("tl_member", "name", 1), ""), "\n  <p class=\"tl_help tl_tip\">Please enter the member name.</p>"; got != want {
		t.Fatalf("help mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if got := r.Help(editing.NewEditContext("tl_member", "name", 1), " tl_red"); !strings.Contains(got, `class="tl_help tl_tip tl_red"`) {
		t.Fatalf("class not applied: %q", got)
	}
	if got := r.Help(editing.NewEditContext("tl_member", "password", 1), ""); got != "" {
		t.Fatalf("password fields have no help, got %q", got)
	}
	if got := r.Help(editing.NewEditContext("tl_member", "custom", 1), ""); got != "" {
		t.Fatalf("empty help text renders nothing, got %q", got)
	}

	hidden := newRenderer(t, nil, editing.WithShowHelp(false))
	if got := hidden.Help(editing.NewEditContext("tl_member", "name", 1), ""); got != "" {
		t.Fatalf("disabled help renders nothing, got %q", got)
	}
}

func TestRow_MarkupWithoutSubmission(t *testing.T) {
	r := newRenderer(t, nil)
	dc := editing.NewEditContext("tl_member", "name", 3)
	dc.Value = "Jane"

	want := "\n" + `<div class="w50 widget"><h3><label for="ctrl_name">Name</label></h3>` + "\n" +
		`<input type="text" name="name" id="ctrl_name" class="tl_text" value="Jane" maxlength="255" onfocus="Backend.getScrollOffset()">` +
		"\n  " + `<p class="tl_help tl_tip">Please enter the member name.</p>` + "\n</div>"
	if diff := cmp.Diff(want, row(t, r, dc)); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
	if dc.NoReload() || dc.Uploadable() {
		t.Fatalf("plain render must not flag the context")
	}
}

func TestRow_MandatoryEmptySubmission(t *testing.T) {
	saver := &recorder{}
	r := newRenderer(t, nil, editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "name", 3)
	dc.Value = ""
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "name,email", "name", "")

	out := row(t, r, dc)
	if !dc.NoReload() {
		t.Fatalf("validation failure must set noReload")
	}
	if !strings.Contains(out, `<p class="tl_error">Please fill in field &#34;Name&#34;!</p>`) {
		t.Fatalf("missing error in %q", out)
	}
	if strings.Contains(out, "Please enter the member name.") {
		t.Fatalf("help must be hidden while errors are shown: %q", out)
	}
	if len(saver.calls) != 0 {
		t.Fatalf("invalid value saved: %v", saver.calls)
	}
}

func TestRow_ValidSubmissionSavesOnce(t *testing.T) {
	saver := &recorder{}
	r := newRenderer(t, nil, editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "name", 3)
	dc.Value = ""
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "name,email", "name", "Jane")

	out := row(t, r, dc)
	if diff := cmp.Diff([]saveCall{{"tl_member", "name", 3, "Jane"}}, saver.calls); diff != "" {
		t.Fatalf("save calls mismatch (-want +got):\n%s", diff)
	}
	if dc.NoReload() {
		t.Fatalf("successful save must not set noReload")
	}
	if dc.Value != "Jane" {
		t.Fatalf("context keeps the saved value, got %v", dc.Value)
	}
	if !strings.Contains(out, "Please enter the member name.") {
		t.Fatalf("help expected in %q", out)
	}
}

func TestRow_SaveFailureBecomesWidgetError(t *testing.T) {
	saver := &recorder{err: errors.New("database is locked")}
	r := newRenderer(t, nil, editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "name", 3)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "name", "name", "Jane")

	out, err := r.Row(context.Background(), dc)
	if err != nil {
		t.Fatalf("save errors must not propagate: %v", err)
	}
	if !dc.NoReload() || len(saver.calls) != 1 {
		t.Fatalf("noReload=%v calls=%d", dc.NoReload(), len(saver.calls))
	}
	if !strings.Contains(out, `<p class="tl_error">database is locked</p>`) {
		t.Fatalf("missing save error in %q", out)
	}
}

func TestRow_SubmissionScope(t *testing.T) {
	tests := []struct {
		name     string
		req      *submission.Request
		palette  []string
		wantSave bool
	}{
		{
			name: "other table",
			req:  post("edit", "FORM_SUBMIT", "tl_page", "FORM_FIELDS[]", "name", "name", "Jane"),
		},
		{
			name: "field not submitted in palette",
			req:  post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "email", "name", "Jane"),
		},
		{
			name:    "field outside override palette",
			req:     post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "name", "name", "Jane"),
			palette: []string{"email"},
		},
		{
			name:     "override all skips the palette check",
			req:      post("overrideAll", "FORM_SUBMIT", "tl_member", "name", "Jane"),
			wantSave: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &recorder{}
			r := newRenderer(t, nil, editing.WithSaver(saver))
			dc := editing.NewEditContext("tl_member", "name", 3)
			dc.Request = tt.req
			dc.Palette = tt.palette
			row(t, r, dc)
			if got := len(saver.calls) == 1; got != tt.wantSave {
				t.Fatalf("saved=%v, want %v", got, tt.wantSave)
			}
		})
	}
}

func TestRow_AutoSubmit(t *testing.T) {
	r := newRenderer(t, nil, editing.WithSaver(&recorder{}))

	dc := editing.NewEditContext("tl_member", "name", 3)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "SUBMIT_TYPE", "auto", "FORM_FIELDS[]", "name", "name", "")
	out := row(t, r, dc)
	if dc.NoReload() {
		t.Fatalf("auto-submit of an empty mandatory field must not block the form")
	}
	if !strings.Contains(out, "tl_error") {
		t.Fatalf("error still shown: %q", out)
	}

	dc = editing.NewEditContext("tl_member", "email", 3)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "SUBMIT_TYPE", "auto", "FORM_FIELDS[]", "email", "email", "nope")
	row(t, r, dc)
	if !dc.NoReload() {
		t.Fatalf("invalid non-empty value must set noReload on auto-submit")
	}
}

func TestRow_BatchEdit(t *testing.T) {
	saver := &recorder{}
	r := newRenderer(t, nil, editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "name", 7)
	dc.InputName = "name_7"
	dc.Request = post("editAll", "FORM_SUBMIT", "tl_member", "FORM_FIELDS_7[]", "name_7,email_7", "name_7", "Jane")
	out := row(t, r, dc)
	if diff := cmp.Diff([]saveCall{{"tl_member", "name", 7, "Jane"}}, saver.calls); diff != "" {
		t.Fatalf("save calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, `id="ctrl_name_7"`) {
		t.Fatalf("input name not used: %q", out)
	}
}

func TestRow_ListValuesAreSerialized(t *testing.T) {
	saver := &recorder{}
	r := newRenderer(t, nil, editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "groups", 2)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "groups", "groups[]", "1", "groups[]", "3")
	row(t, r, dc)
	if diff := cmp.Diff([]saveCall{{"tl_member", "groups", 2, `["1","3"]`}}, saver.calls); diff != "" {
		t.Fatalf("save calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRow_RawRequestData(t *testing.T) {
	optOut := false
	table := dca.TableSpec{
		Name:     "tl_raw",
		Config:   dca.TableConfig{UseRawRequestData: true},
		Palettes: map[string]string{"default": "code,label"},
		Fields: map[string]dca.FieldSpec{
			"code":  {Name: "code", InputType: dca.InputText},
			"label": {Name: "label", InputType: dca.InputText, Eval: dca.Eval{UseRawRequestData: &optOut}},
		},
	}
	saver := &recorder{}
	r := newRenderer(t, dca.NewStore(table), editing.WithSaver(saver))

	for _, field := range []string{"code", "label"} {
		dc := editing.NewEditContext("tl_raw", field, 1)
		dc.Request = post("edit", "FORM_SUBMIT", "tl_raw", "FORM_FIELDS[]", "code,label", field, "<script>x</script>Jane")
		row(t, r, dc)
	}
	want := []saveCall{
		{"tl_raw", "code", 1, "<script>x</script>Jane"},
		{"tl_raw", "label", 1, "Jane"},
	}
	if diff := cmp.Diff(want, saver.calls); diff != "" {
		t.Fatalf("save calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRow_TinyEditorConvertsFileReferences(t *testing.T) {
	raw := true
	table := dca.TableSpec{
		Name:     "tl_news",
		Palettes: map[string]string{"default": "teaser"},
		Fields: map[string]dca.FieldSpec{
			"teaser": {Name: "teaser", InputType: dca.InputTextarea, Eval: dca.Eval{RTE: "tinyMCE|simple", UseRawRequestData: &raw}},
		},
	}
	id := uuid.MustParse("9e3a4c1e-7b1d-4f5e-9a43-3d2f1c0b5a77")
	index := inserttag.NewIndex()
	index.Add(id, "files/team.jpg")
	saver := &recorder{}
	r := newRenderer(t, dca.NewStore(table), editing.WithSaver(saver), editing.WithInsertTags(inserttag.New(index, "")))

	dc := editing.NewEditContext("tl_news", "teaser", 4)
	dc.Value = `<img src="{{file::` + id.String() + `}}">`
	out := row(t, r, dc)
	if !strings.Contains(out, "files/team.jpg") || strings.Contains(out, "{{file::") {
		t.Fatalf("editor should see file paths: %q", out)
	}
	if !strings.Contains(out, `selector: "#ctrl_teaser"`) {
		t.Fatalf("editor container missing: %q", out)
	}
	if strings.Contains(out, "wrap.svg") {
		t.Fatalf("rte fields have no wrap toggle: %q", out)
	}

	dc = editing.NewEditContext("tl_news", "teaser", 4)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_news", "FORM_FIELDS[]", "teaser", "teaser", `<img src="files/team.jpg">`)
	row(t, r, dc)
	want := []saveCall{{"tl_news", "teaser", 4, `<img src="{{file::` + id.String() + `}}">`}}
	if diff := cmp.Diff(want, saver.calls); diff != "" {
		t.Fatalf("save calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRow_InputFieldCallback(t *testing.T) {
	var constructed int
	reg := widgets.NewRegistry()
	reg.Register(dca.InputText, func(widgets.Attributes, widgets.Env) widgets.Widget {
		constructed++
		return nil
	})
	callbacks := callback.NewRegistry()
	callbacks.MustRegister("member", "customField", func(dc *editing.EditContext, xlabel string) string {
		return "<custom " + dc.Table + "." + dc.Field + xlabel + ">"
	})
	saver := &recorder{}
	r := newRenderer(t, nil, editing.WithWidgets(reg), editing.WithCallbacks(callbacks), editing.WithSaver(saver))

	dc := editing.NewEditContext("tl_member", "custom", 1)
	dc.Request = post("edit", "FORM_SUBMIT", "tl_member", "FORM_FIELDS[]", "custom", "custom", "x")
	if got := row(t, r, dc); got != "<custom tl_member.custom>" {
		t.Fatalf("callback output must be returned verbatim, got %q", got)
	}
	if constructed != 0 || len(saver.calls) != 0 || dc.NoReload() {
		t.Fatalf("short-circuit ran later steps: widgets=%d saves=%d", constructed, len(saver.calls))
	}

	missing := newRenderer(t, nil)
	if _, err := missing.Row(context.Background(), editing.NewEditContext("tl_member", "custom", 1)); !errors.Is(err, callback.ErrNotFound) {
		t.Fatalf("want callback.ErrNotFound, got %v", err)
	}
}

func TestRow_DecorationsAndWizardCallbacks(t *testing.T) {
	table := dca.TableSpec{
		Name:     "tl_test",
		Palettes: map[string]string{"default": "body"},
		Fields: map[string]dca.FieldSpec{
			"body": {
				Name:      "body",
				Label:     dca.Label{Title: "Body"},
				InputType: dca.InputTextarea,
				XLabel:    []dca.Callback{dca.NamedMethod("deco", "badge"), dca.Invocable(func(*editing.EditContext) string { return "[2]" })},
				Wizard:    []dca.Callback{dca.Invocable(func(dc *editing.EditContext) string { return "<wizard " + dc.InputName + ">" })},
			},
		},
	}
	callbacks := callback.NewRegistry()
	callbacks.MustRegister("deco", "badge", func(*editing.EditContext) string { return "[1]" })
	r := newRenderer(t, dca.NewStore(table), editing.WithCallbacks(callbacks))

	out := row(t, r, editing.NewEditContext("tl_test", "body", 1))
	want := `<h3><label for="ctrl_body">Body</label> <img src="system/themes/flexible/icons/wrap.svg" width="16" height="16" alt="Toggle word wrap" title="Toggle word wrap" class="toggleWrap" onclick="Backend.toggleWrap('ctrl_body')">[1][2]</h3>`
	if !strings.Contains(out, want) {
		t.Fatalf("xlabel mismatch:\nwant substring %q\n got %q", want, out)
	}
	if !strings.Contains(out, "</textarea><wizard body>") {
		t.Fatalf("wizard callbacks follow the control: %q", out)
	}
}

func TestRow_HelpWizard(t *testing.T) {
	r := newRenderer(t, nil)
	out := row(t, r, editing.NewEditContext("tl_member", "notes", 1))
	want := ` <a href="contao/help.php?table=tl_member&amp;field=notes" title="Open the help wizard" onclick="Backend.openModalIframe({'title':'Notes','url':this.href});return false">` +
		`<img src="system/themes/flexible/icons/about.svg" width="16" height="16" alt="Open the help wizard" style="vertical-align:text-bottom"></a>`
	if !strings.Contains(out, want) {
		t.Fatalf("help wizard mismatch:\nwant substring %q\n got %q", want, out)
	}
}

func TestRow_DatePicker(t *testing.T) {
	r := newRenderer(t, nil)
	out := row(t, r, editing.NewEditContext("tl_member", "dateOfBirth", 1))

	want := ` <img src="assets/datepicker/images/icon.svg" alt="" title="Date picker" id="toggle_dateOfBirth" style="cursor:pointer">
  <script>
    window.addEvent("domready", function() {
      new Picker.Date($("ctrl_dateOfBirth"), {
        draggable: false,
        toggle: $("toggle_dateOfBirth"),
        format: "%Y-%m-%d",
        positionOffset: {x:-211,y:-209},
        pickerClass: "datepicker_bootstrap",
        useFadeInOut: !Browser.ie,
        startDay: 1,
        titleFormat: "%B %d%o, %Y"
      });
    });
  </script>`
	if !strings.Contains(out, want) {
		t.Fatalf("date picker mismatch:\nwant substring %q\n got %q", want, out)
	}
	if !strings.HasPrefix(out, "\n"+`<div class="w50 wizard widget">`) {
		t.Fatalf("unexpected container: %q", out)
	}
}

func TestRow_DatePickerVariants(t *testing.T) {
	table := dca.TableSpec{
		Name:     "tl_event",
		Palettes: map[string]string{"default": "start,at"},
		Fields: map[string]dca.FieldSpec{
			"start": {Name: "start", InputType: dca.InputText, Eval: dca.Eval{Rgxp: "datim", DatePicker: true, SubmitOnChange: true}},
			"at":    {Name: "at", InputType: dca.InputText, Eval: dca.Eval{Rgxp: "time", DatePicker: true}},
		},
	}
	r := newRenderer(t, dca.NewStore(table))

	out := row(t, r, editing.NewEditContext("tl_event", "start", 1))
	for _, want := range []string{
		`format: "%Y-%m-%d %H:%M",`,
		"positionOffset: {x:-211,y:-209},\n        timePicker: true,",
		"useFadeInOut: !Browser.ie,\n        onSelect: function() { Backend.autoSubmit(\"tl_event\"); },\n        startDay",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("datim picker missing %q in %q", want, out)
		}
	}

	out = row(t, r, editing.NewEditContext("tl_event", "at", 1))
	if !strings.Contains(out, "positionOffset: {x:-211,y:-209},\n        pickOnly: \"time\",") {
		t.Fatalf("time picker option missing: %q", out)
	}
}

func TestRow_ColorPicker(t *testing.T) {
	r := newRenderer(t, nil)
	out := row(t, r, editing.NewEditContext("tl_member", "favcolor", 1))

	for _, want := range []string{
		` <img src="system/themes/flexible/icons/pickcolor.svg" width="16" height="16" alt="Color picker (requires JavaScript)" title="Color picker (requires JavaScript)" id="moo_favcolor" style="cursor:pointer">`,
		`var cl = $("ctrl_favcolor_0").value.hexToRgb(true) || [255, 0, 0];`,
		`new MooRainbow("moo_favcolor", {`,
		`imgPath: "assets/colorpicker/images/",`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("color picker missing %q in %q", want, out)
		}
	}
	if !strings.HasPrefix(out, "\n"+`<div class="w50 wizard widget inline">`) {
		t.Fatalf("multiple wizard text fields are inline: %q", out)
	}
}

func TestRow_ConfiguredTheme(t *testing.T) {
	r := newRenderer(t, nil, editing.WithIcons(icon.New(icon.Config("acme", "", "/static/"))))
	out := row(t, r, editing.NewEditContext("tl_member", "favcolor", 1))

	want := ` <img src="/static/system/themes/acme/icons/pickcolor.svg" width="16" height="16"`
	if !strings.Contains(out, want) {
		t.Fatalf("themed icon missing %q in %q", want, out)
	}
	if !strings.Contains(out, `imgPath: "assets/colorpicker/images/",`) {
		t.Fatalf("asset paths are not themed: %q", out)
	}
}

func TestRow_DCAPicker(t *testing.T) {
	r := newRenderer(t, nil)

	dc := editing.NewEditContext("tl_member", "website", 5)
	dc.Value = "https://example.com"
	dc.Token = "tok"
	out := row(t, r, dc)
	want := ` <a href="/contao/picker?context=link&amp;target=tl_member.website.5&amp;value=https%3A%2F%2Fexample.com&amp;popup=1" title="Open the page picker" id="pp_website">` +
		`<img src="system/themes/flexible/icons/pickpage.svg" width="16" height="16" alt="Open the page picker"></a>`
	if !strings.Contains(out, want) {
		t.Fatalf("picker link mismatch:\nwant substring %q\n got %q", want, out)
	}
	for _, frag := range []string{
		`"title": "Website",`,
		`$("ctrl_website").value = (json.tag || json.content);`,
		`"REQUEST_TOKEN":"tok"`,
	} {
		if !strings.Contains(out, frag) {
			t.Fatalf("picker script missing %q", frag)
		}
	}

	out = row(t, r, editing.NewEditContext("tl_content", "url", 3))
	if !strings.Contains(out, `href="/contao/picker?do=page&amp;context=link&amp;target=tl_content.url.3&amp;value=&amp;popup=1"`) {
		t.Fatalf("configured picker params missing: %q", out)
	}
}

func TestPickerParams(t *testing.T) {
	dc := editing.NewEditContext("tl_content", "url", 9)
	dc.Value = "{{link_url::2}}"
	got := editing.PickerParams(dc, dca.DCAPicker{Do: "page", Context: "file"})
	var keys []string
	for _, p := range got {
		keys = append(keys, p.Key+"="+p.Value)
	}
	want := []string{"do=page", "context=file", "target=tl_content.url.9", "value={{link_url::2}}", "popup=1"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestRow_UpdateModeInOverrideAll(t *testing.T) {
	r := newRenderer(t, nil)

	dc := editing.NewEditContext("tl_member", "groups", 1)
	dc.Request = post("overrideAll")
	out := row(t, r, dc)
	want := "\n</div>\n<div class=\"widget\">\n" +
		"  <fieldset class=\"tl_radio_container\">\n" +
		"  <legend>Update mode</legend>\n" +
		`    <input type="radio" name="groups_update" id="opt_groups_update_1" class="tl_radio" value="add" onfocus="Backend.getScrollOffset()"> <label for="opt_groups_update_1">Add selected values</label><br>` + "\n" +
		`    <input type="radio" name="groups_update" id="opt_groups_update_2" class="tl_radio" value="remove" onfocus="Backend.getScrollOffset()"> <label for="opt_groups_update_2">Remove selected values</label><br>` + "\n" +
		`    <input type="radio" name="groups_update" id="opt_groups_update_0" class="tl_radio" value="replace" checked="checked" onfocus="Backend.getScrollOffset()"> <label for="opt_groups_update_0">Replace existing entries</label>` + "\n" +
		"  </fieldset>"
	if !strings.Contains(out, want) {
		t.Fatalf("update mode mismatch:\nwant substring %q\n got %q", want, out)
	}

	dc = editing.NewEditContext("tl_member", "groups", 1)
	if out := row(t, r, dc); strings.Contains(out, "tl_radio_container") {
		t.Fatalf("update mode only in override all: %q", out)
	}
	dc = editing.NewEditContext("tl_member", "newsletter", 1)
	dc.Request = post("overrideAll")
	if out := row(t, r, dc); strings.Contains(out, "tl_radio_container") {
		t.Fatalf("single checkboxes have no update mode: %q", out)
	}
}

func TestRow_ContainerClasses(t *testing.T) {
	r := newRenderer(t, nil)
	tests := []struct {
		field string
		want  string
	}{
		{"password", "\n<div><h3>"},
		{"newsletter", "\n" + `<div class="w50 widget cbx">`},
		{"groups", "\n" + `<div class="widget">`},
		{"email", "\n" + `<div class="w50 widget">`},
	}
	for _, tt := range tests {
		if out := row(t, r, editing.NewEditContext("tl_member", tt.field, 1)); !strings.HasPrefix(out, tt.want) {
			t.Errorf("%s: want prefix %q, got %q", tt.field, tt.want, out)
		}
	}
}

func TestRow_Uploadable(t *testing.T) {
	table := dca.TableSpec{
		Name:     "tl_import",
		Palettes: map[string]string{"default": "source"},
		Fields:   map[string]dca.FieldSpec{"source": {Name: "source", InputType: dca.InputUpload}},
	}
	r := newRenderer(t, dca.NewStore(table))
	dc := editing.NewEditContext("tl_import", "source", 1)
	row(t, r, dc)
	if !dc.Uploadable() {
		t.Fatalf("upload widgets need a multipart form")
	}
}

func pngFile(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRow_FilePreview(t *testing.T) {
	files := fstest.MapFS{"files/team.png": {Data: pngFile(t, 40, 30)}}
	record := records.Record{"id": int64(1), "type": "file", "path": "files/team.png"}

	r := newRenderer(t, nil, editing.WithImages(imaging.New(files, imaging.Config{})))
	dc := editing.NewEditContext("tl_files", "name", 1)
	dc.Value = "team.png"
	dc.ActiveRecord = record
	out := row(t, r, dc)

	preview, err := imaging.New(files, imaging.Config{}).Preview(context.Background(), "files/team.png")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	want := `<div class="widget">` + "\n" +
		`<div id="` + preview.ControlID() + `" class="tl_edit_preview" data-original-width="40" data-original-height="30">` + "\n" +
		`  <img src="` + preview.DataURI + `" width="40" height="30" alt="">` + "\n" +
		"</div><script>Backend.editPreviewWizard($('" + preview.ControlID() + "'));</script>" +
		`<p class="tl_help tl_tip">Click on the image to mark the important part. The selection is used as the focus point when cropping.</p></div>` +
		"\n" + `<div class="widget">`
	if !strings.HasPrefix(out, want) {
		t.Fatalf("preview mismatch (-want +got):\n%s", cmp.Diff(want, out[:min(len(out), len(want))]))
	}

	gd := newRenderer(t, nil, editing.WithImages(imaging.New(files, imaging.Config{Backend: imaging.BackendGD, MaxWidth: 20, MaxHeight: 20})))
	out = row(t, gd, dc)
	if !strings.HasPrefix(out, "\n"+`<div id="ctrl_preview_`) || strings.Contains(out, "editPreviewWizard") {
		t.Fatalf("oversized gd images show a bare placeholder: %q", out)
	}

	folder := editing.NewEditContext("tl_files", "name", 2)
	folder.ActiveRecord = records.Record{"type": "folder", "path": "files"}
	if out := row(t, r, folder); strings.Contains(out, "tl_edit_preview") {
		t.Fatalf("folders have no preview: %q", out)
	}
}

func TestRunLoad(t *testing.T) {
	field := dca.FieldSpec{
		Name: "singleSRC",
		Load: []dca.Callback{
			dca.Invocable(func(value any, _ *editing.EditContext) (any, error) {
				return append(value.([]string), "9"), nil
			}),
			dca.NamedMethod("files", "sort"),
		},
	}
	callbacks := callback.NewRegistry()
	callbacks.MustRegister("files", "sort", func(value any, dc *editing.EditContext) (any, error) {
		list := value.([]string)
		return append([]string{dc.Field}, list...), nil
	})

	got, err := editing.RunLoad(callbacks, field, []string{"3"}, editing.NewEditContext("tl_content", "singleSRC", 1))
	if err != nil {
		t.Fatalf("run load: %v", err)
	}
	if diff := cmp.Diff([]string{"singleSRC", "3", "9"}, got); diff != "" {
		t.Fatalf("load result mismatch (-want +got):\n%s", diff)
	}

	field.Load = []dca.Callback{dca.Invocable(func(any, *editing.EditContext) (any, error) {
		return nil, errors.New("boom")
	})}
	if _, err := editing.RunLoad(callbacks, field, nil, nil); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestEditContext_NoReloadIsSticky(t *testing.T) {
	dc := editing.NewEditContext("tl_member", "name", 1)
	if dc.InputName != "name" || dc.NoReload() {
		t.Fatalf("unexpected fresh context %+v", dc)
	}
	dc.MarkNoReload()
	dc.MarkNoReload()
	if !dc.NoReload() {
		t.Fatalf("noReload must stay set")
	}
}
