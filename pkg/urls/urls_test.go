package urls_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dcaform/pkg/urls"
)

func TestRouter_Generate(t *testing.T) {
	router := urls.NewRouter()

	got, err := router.Generate(urls.PickerRoute,
		urls.Param{Key: "context", Value: "link"},
		urls.Param{Key: "extras[do]", Value: "page"},
		urls.Param{Key: "target", Value: "tl_content.url.5"},
		urls.Param{Key: "value", Value: "{{link_url::3}}"},
		urls.Param{Key: "popup", Value: "1"},
	)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "/contao/picker?context=link&extras%5Bdo%5D=page&target=tl_content.url.5&value=%7B%7Blink_url%3A%3A3%7D%7D&popup=1"
	if got != want {
		t.Fatalf("url mismatch\nwant %s\n got %s", want, got)
	}

	got, err = router.Generate("contao_fieldrow",
		urls.Param{Key: "table", Value: "tl_member"},
		urls.Param{Key: "id", Value: "5"},
		urls.Param{Key: "field", Value: "name"},
	)
	if err != nil || got != "/contao/tl_member/5/fields/name" {
		t.Fatalf("unexpected path %q (%v)", got, err)
	}

	if _, err := router.Generate("missing"); !errors.Is(err, urls.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestParseQuery(t *testing.T) {
	got := urls.ParseQuery("?do=member&amp;act=edit&id=5&&q=a%20b")
	want := []urls.Param{
		{Key: "do", Value: "member"},
		{Key: "act", Value: "edit"},
		{Key: "id", Value: "5"},
		{Key: "q", Value: "a b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_AddToURL(t *testing.T) {
	b := urls.NewBuilder("", "do=member&rt=token&ref=old&id=3", "abc")

	tests := []struct {
		name    string
		request string
		unset   []string
		want    string
	}{
		{
			name:    "merge and replace",
			request: "act=edit&amp;id=5",
			want:    "contao?do=member&amp;id=5&amp;act=edit&amp;ref=abc",
		},
		{
			name:    "unset keys",
			request: "act=show",
			unset:   []string{"id"},
			want:    "contao?do=member&amp;act=show&amp;ref=abc",
		},
		{
			name: "empty request keeps ref from query",
			want: "contao?do=member&amp;id=3&amp;ref=abc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.AddToURL(tt.request, tt.unset...); got != tt.want {
				t.Fatalf("url mismatch\nwant %s\n got %s", tt.want, got)
			}
		})
	}

	plain := urls.NewBuilder("contao", "", "")
	if got := plain.AddToURL(""); got != "contao" {
		t.Fatalf("empty query should yield the script, got %s", got)
	}
}

func TestBuilder_SwitchToEdit(t *testing.T) {
	b := urls.NewBuilder("contao", "do=article&table=tl_content&act=select&id=4", "")
	want := "contao?do=article&table=tl_content&amp;act=edit&amp;id=9"
	if got := b.SwitchToEdit("9"); got != want {
		t.Fatalf("url mismatch\nwant %s\n got %s", want, got)
	}

	b = urls.NewBuilder("contao", "act=edit", "")
	if got := b.SwitchToEdit("2"); got != "contao?act=edit&amp;id=2" {
		t.Fatalf("unexpected url %s", got)
	}
}
