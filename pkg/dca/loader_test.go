package dca_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/testsupport"
)

func TestLoadFS_YAMLFixtures(t *testing.T) {
	store := testsupport.LoadStore(t)

	if diff := cmp.Diff([]string{"tl_content", "tl_files", "tl_member", "tl_page"}, store.Names()); diff != "" {
		t.Fatalf("table names mismatch (-want +got):\n%s", diff)
	}

	name, err := store.Field("tl_member", "name")
	if err != nil {
		t.Fatalf("field name: %v", err)
	}
	want := dca.FieldSpec{
		Name:      "name",
		Label:     dca.Label{Title: "Name", Help: "Please enter the member name."},
		InputType: dca.InputText,
		Eval:      dca.Eval{Mandatory: true, MaxLength: 255, TLClass: "w50"},
	}
	if diff := cmp.Diff(want, name); diff != "" {
		t.Fatalf("name field mismatch (-want +got):\n%s", diff)
	}

	custom, err := store.Field("tl_member", "custom")
	if err != nil {
		t.Fatalf("field custom: %v", err)
	}
	if custom.InputField == nil || custom.InputField.Service != "member" || custom.InputField.Method != "customField" {
		t.Fatalf("input_field_callback not parsed: %#v", custom.InputField)
	}

	website, _ := store.Field("tl_member", "website")
	if website.Eval.DCAPicker == nil || *website.Eval.DCAPicker != (dca.DCAPicker{}) {
		t.Fatalf("boolean dcaPicker should enable defaults: %#v", website.Eval.DCAPicker)
	}
	url, _ := store.Field("tl_content", "url")
	if diff := cmp.Diff(&dca.DCAPicker{Do: "page", Context: "link"}, url.Eval.DCAPicker); diff != "" {
		t.Fatalf("dcaPicker options mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"type", "addImage"}, store.Selectors("tl_content")); diff != "" {
		t.Fatalf("selectors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1, 4}, store.SortingRoot("tl_page")); diff != "" {
		t.Fatalf("sorting root mismatch (-want +got):\n%s", diff)
	}

	ops, err := store.Operations("tl_member")
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	keys := make([]string, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, op.Key)
	}
	if diff := cmp.Diff([]string{"edit", "delete", "show"}, keys); diff != "" {
		t.Fatalf("operation order mismatch (-want +got):\n%s", diff)
	}
	if ops[1].Attributes != `onclick="if(!confirm('Delete ID %s?'))return false;Backend.getScrollOffset()"` {
		t.Fatalf("attributes not unquoted: %q", ops[1].Attributes)
	}

	table, _ := store.Table("tl_files")
	if table.Config.DataContainer != "Folder" {
		t.Fatalf("data container mismatch: %q", table.Config.DataContainer)
	}
}

func TestLoadFS_JSON(t *testing.T) {
	fsys := fstest.MapFS{
		"tl_news.json": {Data: []byte(`{
			"tables": {
				"tl_news": {
					"palettes": {"__selector__": ["source"], "default": "headline,source"},
					"fields": {
						"headline": {"label": "Headline", "inputType": "text", "xlabel": ["news::xlabel", "news::other"]},
						"source": {"label": ["Source", "Redirect target"], "inputType": "select", "load_callback": "news::loadSource"}
					},
					"list": {"operations": [{"key": "edit", "label": ["Edit", "Edit %s"], "button_callback": "news::editButton"}]}
				}
			}
		}`)},
	}

	store, err := dca.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	headline, err := store.Field("tl_news", "headline")
	if err != nil {
		t.Fatalf("headline: %v", err)
	}
	if headline.Label.Title != "Headline" || headline.Label.Help != "" {
		t.Fatalf("scalar label mismatch: %#v", headline.Label)
	}
	wantX := []dca.Callback{dca.NamedMethod("news", "xlabel"), dca.NamedMethod("news", "other")}
	if diff := cmp.Diff(wantX, headline.XLabel); diff != "" {
		t.Fatalf("xlabel callbacks mismatch (-want +got):\n%s", diff)
	}

	source, _ := store.Field("tl_news", "source")
	if diff := cmp.Diff([]dca.Callback{dca.NamedMethod("news", "loadSource")}, source.Load); diff != "" {
		t.Fatalf("load callbacks mismatch (-want +got):\n%s", diff)
	}

	table, _ := store.Table("tl_news")
	if table.Config.DataContainer != "Table" {
		t.Fatalf("default data container not applied: %q", table.Config.DataContainer)
	}
	if table.Operations[0].Button == nil || table.Operations[0].Button.String() != "news::editButton" {
		t.Fatalf("button callback mismatch: %#v", table.Operations[0].Button)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "duplicate table",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte("tables:\n  tl_x:\n    fields: {}\n")},
				"b.yaml": {Data: []byte("tables:\n  tl_x:\n    fields: {}\n")},
			},
		},
		{
			name: "empty file",
			fsys: fstest.MapFS{"a.yaml": {Data: []byte("   \n")}},
		},
		{
			name: "bad callback",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte("tables:\n  tl_x:\n    fields:\n      f:\n        xlabel: [nocolons]\n")},
			},
		},
		{
			name: "duplicate operation",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte("tables:\n  tl_x:\n    list:\n      operations:\n        - key: edit\n        - key: edit\n")},
			},
		},
		{
			name: "palette not a string",
			fsys: fstest.MapFS{
				"a.yaml": {Data: []byte("tables:\n  tl_x:\n    palettes:\n      default: [a, b]\n")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dca.LoadFS(tt.fsys); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFS_IgnoresOtherFiles(t *testing.T) {
	store, err := dca.LoadFS(fstest.MapFS{"README.md": {Data: []byte("# notes")}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(store.Names()) != 0 {
		t.Fatalf("expected empty store, got %v", store.Names())
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tl_x.yml"), []byte("tables:\n  tl_x:\n    fields:\n      f: {inputType: text}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := dca.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if _, err := store.Field("tl_x", "f"); err != nil {
		t.Fatalf("field: %v", err)
	}
	if _, err := store.Field("tl_x", "missing"); !errors.Is(err, dca.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}

	if _, err := dca.LoadDir(filepath.Join(dir, "tl_x.yml")); err == nil {
		t.Fatalf("expected error for non-directory")
	}
}
