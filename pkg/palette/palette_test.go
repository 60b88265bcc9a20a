package palette_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/palette"
	"github.com/goliatone/go-dcaform/pkg/testsupport"
)

type values map[string][]string

func (v values) Post(name string) ([]string, bool) {
	got, ok := v[name]
	return got, ok
}

func contentTable(t *testing.T) dca.TableSpec {
	t.Helper()
	table, err := testsupport.LoadStore(t).Table("tl_content")
	if err != nil {
		t.Fatalf("load tl_content: %v", err)
	}
	return table
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "empty", input: nil, want: []string{}},
		{name: "single", input: []string{"a"}, want: []string{"a"}},
		{name: "two", input: []string{"a", "b"}, want: []string{"b", "ab", "a"}},
		{name: "three", input: []string{"a", "b", "c"}, want: []string{"c", "bc", "b", "ab", "abc", "ac", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := palette.Combine(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("combine mismatch (-want +got):\n%s", diff)
			}
		})
	}

	four := palette.Combine([]string{"a", "b", "c", "d"})
	if len(four) != 15 || len(palette.Unique(four)) != 15 {
		t.Fatalf("expected 15 distinct combinations, got %v", four)
	}
}

func TestSplit(t *testing.T) {
	got := palette.Split("{title_legend:hide},name, email;;{image_legend},addImage,[addImage],singleSRC,[EOF] ,")
	want := []string{"name", "email", "addImage", "singleSRC"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("split mismatch (-want +got):\n%s", diff)
	}
	if got := palette.Split("  "); got != nil {
		t.Fatalf("blank expression should yield nil, got %v", got)
	}
}

func TestUnique(t *testing.T) {
	got := palette.Unique([]string{"b", "a", "", "b", "c", "a"})
	if diff := cmp.Diff([]string{"b", "a", "c"}, got); diff != "" {
		t.Fatalf("unique mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	table := contentTable(t)

	tests := []struct {
		name  string
		state palette.State
		want  []string
	}{
		{
			name: "default without triggers",
			want: []string{"type", "headline"},
		},
		{
			name:  "selector value picks palette",
			state: palette.State{Record: map[string]any{"type": "text"}},
			want:  []string{"type", "headline", "text", "addImage"},
		},
		{
			name:  "checkbox selector splices subpalette",
			state: palette.State{Record: map[string]any{"type": "text", "addImage": "1"}},
			want:  []string{"type", "headline", "text", "addImage", "singleSRC", "size"},
		},
		{
			name: "submitted value overrides record",
			state: palette.State{
				Record:     map[string]any{"type": "text"},
				Submitted:  values{"type": {"image"}},
				Submitting: true,
			},
			want: []string{"type", "headline", "singleSRC", "size"},
		},
		{
			name: "submitted values ignored for other tables",
			state: palette.State{
				Record:    map[string]any{"type": "text"},
				Submitted: values{"type": {"image"}},
			},
			want: []string{"type", "headline", "text", "addImage"},
		},
		{
			name: "batch edit reads suffixed keys",
			state: palette.State{
				Submitted:  values{"type": {"text"}, "type_5": {"image"}},
				Submitting: true,
				Suffix:     "5",
			},
			want: []string{"type", "headline", "singleSRC", "size"},
		},
		{
			name: "unchecked box posts empty string",
			state: palette.State{
				Record:     map[string]any{"type": "text", "addImage": "1"},
				Submitted:  values{"addImage": {""}},
				Submitting: true,
			},
			want: []string{"type", "headline", "text", "addImage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := palette.Fields(table, tt.state)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("palette mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_SubpaletteMarkers(t *testing.T) {
	table := contentTable(t)
	got := palette.Resolve(table, palette.State{Record: map[string]any{"type": "text", "addImage": true}})
	want := "{type_legend},type,headline;{text_legend},text;{image_legend},addImage,[addImage],singleSRC,size,[EOF]"
	if got != want {
		t.Fatalf("resolve mismatch\nwant %s\n got %s", want, got)
	}
}

func TestResolve_CombinedSelectors(t *testing.T) {
	table := dca.TableSpec{
		Name:      "tl_module",
		Selectors: []string{"type", "mode"},
		Palettes: map[string]string{
			"default":     "name",
			"list":        "name,list",
			"listarchive": "name,list,archive",
		},
		Fields: map[string]dca.FieldSpec{
			"type": {Name: "type", InputType: dca.InputSelect},
			"mode": {Name: "mode", InputType: dca.InputSelect},
		},
	}

	got := palette.Fields(table, palette.State{Record: map[string]any{"type": "list", "mode": "archive"}})
	if diff := cmp.Diff([]string{"name", "list", "archive"}, got); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}

	got = palette.Fields(table, palette.State{Record: map[string]any{"type": "list", "mode": "other"}})
	if diff := cmp.Diff([]string{"name", "list"}, got); diff != "" {
		t.Fatalf("fallback palette mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_SelectorChangeForcesRecompute(t *testing.T) {
	table := contentTable(t)
	req := palette.Request{
		Table:      table,
		Field:      "type",
		InputName:  "type",
		Stored:     "",
		Posted:     "text",
		FormFields: []string{"type,headline", "text"},
		Override:   []string{"type", "headline"},
		State: palette.State{
			Submitted:  values{"type": {"text"}},
			Submitting: true,
		},
	}

	got := palette.Evaluate(req)
	want := palette.Scope{
		Palette:    []string{"type", "headline", "text", "addImage"},
		Active:     []string{"type", "headline", "text"},
		Recomputed: true,
		InScope:    true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scope mismatch (-want +got):\n%s", diff)
	}

	req.Posted = ""
	got = palette.Evaluate(req)
	if got.Recomputed {
		t.Fatalf("unchanged selector must keep the override")
	}
	if diff := cmp.Diff([]string{"type", "headline"}, got.Palette); diff != "" {
		t.Fatalf("override palette mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_NonSelectorKeepsOverride(t *testing.T) {
	req := palette.Request{
		Table:      contentTable(t),
		Field:      "headline",
		InputName:  "headline",
		Stored:     "old",
		Posted:     "new",
		FormFields: []string{"type,headline"},
		Override:   []string{"type", "headline"},
	}
	got := palette.Evaluate(req)
	if got.Recomputed || !got.InScope {
		t.Fatalf("unexpected scope %+v", got)
	}
}

func TestEvaluate_OutOfScope(t *testing.T) {
	req := palette.Request{
		Table:      contentTable(t),
		Field:      "singleSRC",
		InputName:  "singleSRC",
		FormFields: []string{"type,headline,singleSRC"},
	}
	got := palette.Evaluate(req)
	if got.InScope {
		t.Fatalf("field outside the computed palette must not be validated: %+v", got)
	}

	req.OverrideAll = true
	if got := palette.Evaluate(req); !got.InScope {
		t.Fatalf("override all bypasses the palette check")
	}
}

func TestEvaluate_BatchEdit(t *testing.T) {
	req := palette.Request{
		Table:      contentTable(t),
		Field:      "headline",
		InputName:  "headline_5",
		FormFields: []string{"type_5,headline_5,pid_5"},
		Override:   []string{"type", "headline"},
		Suffix:     "5",
		BatchEdit:  true,
		Privileged: true,
	}
	got := palette.Evaluate(req)
	want := palette.Scope{
		Palette: []string{"type_5", "headline_5", "pid_5", "sorting_5"},
		Active:  []string{"type_5", "headline_5", "pid_5"},
		InScope: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scope mismatch (-want +got):\n%s", diff)
	}

	req.Privileged = false
	got = palette.Evaluate(req)
	if diff := cmp.Diff([]string{"type_5", "headline_5"}, got.Active); diff != "" {
		t.Fatalf("unprivileged scope mismatch (-want +got):\n%s", diff)
	}
}
