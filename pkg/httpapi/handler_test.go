package httpapi_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-dcaform/pkg/buttons"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/httpapi"
	"github.com/goliatone/go-dcaform/pkg/metrics"
	"github.com/goliatone/go-dcaform/pkg/picker"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/testsupport"
)

type fixture struct {
	router http.Handler
	store  *records.Memory
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	schema := testsupport.LoadStore(t)
	mem := records.NewMemory()
	mem.Put("tl_member", 3, records.Record{"name": "Jane"})

	renderer, err := editing.New(schema, editing.WithSaver(mem))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)

	h := httpapi.New(renderer,
		picker.New(schema, picker.Tables{"tl_files", "tl_page"}),
		httpapi.WithLookup(mem),
		httpapi.WithButtons(buttons.New(schema)),
		httpapi.WithMetrics(collector, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return fixture{router: h.Router(), store: mem, reg: reg}
}

func (f fixture) do(t *testing.T, method, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	res := rec.Result()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, string(raw)
}

func TestField_RendersStoredValue(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, http.MethodGet, "/contao/tl_member/3/fields/name?act=edit", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.StatusCode, body)
	}
	if got := res.Header.Get(httpapi.HeaderNoReload); got != "false" {
		t.Fatalf("%s = %q, want false", httpapi.HeaderNoReload, got)
	}
	if !strings.Contains(body, `value="Jane"`) {
		t.Fatalf("stored value missing: %s", body)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestField_RejectedSubmission(t *testing.T) {
	f := newFixture(t)

	form := url.Values{
		"FORM_SUBMIT":   {"tl_member"},
		"FORM_FIELDS[]": {"name,email"},
		"name":          {""},
	}
	res, body := f.do(t, http.MethodPost, "/contao/tl_member/3/fields/name?act=edit", form)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", res.StatusCode, body)
	}
	if got := res.Header.Get(httpapi.HeaderNoReload); got != "true" {
		t.Fatalf("%s = %q, want true", httpapi.HeaderNoReload, got)
	}
	if !strings.Contains(body, `class="tl_error"`) {
		t.Fatalf("error paragraph missing: %s", body)
	}

	record, err := f.store.FindByPrimaryKey(context.Background(), "tl_member", 3)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if record["name"] != "Jane" {
		t.Fatalf("rejected value saved: %v", record["name"])
	}
}

func TestField_AcceptedSubmissionSaves(t *testing.T) {
	f := newFixture(t)

	form := url.Values{
		"FORM_SUBMIT":   {"tl_member"},
		"FORM_FIELDS[]": {"name,email"},
		"name":          {"Janet"},
	}
	res, body := f.do(t, http.MethodPost, "/contao/tl_member/3/fields/name?act=edit", form)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.StatusCode, body)
	}

	record, err := f.store.FindByPrimaryKey(context.Background(), "tl_member", 3)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if diff := cmp.Diff("Janet", record["name"]); diff != "" {
		t.Fatalf("saved value mismatch (-want +got):\n%s", diff)
	}
}

func TestField_ErrorStatus(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"excluded", "/contao/tl_member/3/fields/secret", http.StatusForbidden},
		{"unknown field", "/contao/tl_member/3/fields/nope", http.StatusNotFound},
		{"unknown table", "/contao/tl_nope/3/fields/name", http.StatusNotFound},
		{"invalid id", "/contao/tl_member/abc/fields/name", http.StatusBadRequest},
		{"missing record", "/contao/tl_member/99/fields/name", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := f.do(t, http.MethodGet, tt.target, nil)
			if res.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d: %s", res.StatusCode, tt.want, body)
			}
		})
	}
}

func TestPicker(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, http.MethodGet, "/contao/picker?table=tl_files&target=tl_content.singleSRC.42&value=3&options=3,7", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.StatusCode, body)
	}
	want := `<div id="tl_select" data-table="tl_files">` +
		"\n" + ` <input type="checkbox" name="singleSRC[]" id="singleSRC_3" class="tl_tree_checkbox" value="3" onfocus="Backend.getScrollOffset()" checked>` +
		"\n" + ` <input type="checkbox" name="singleSRC[]" id="singleSRC_7" class="tl_tree_checkbox" value="7" onfocus="Backend.getScrollOffset()">` +
		"\n</div>"
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("picker markup mismatch (-want +got):\n%s", diff)
	}
}

func TestPicker_ErrorStatus(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, http.MethodGet, "/contao/picker?table=tl_member&target=tl_content.singleSRC.42", nil)
	if res.StatusCode != http.StatusNoContent || body != "" {
		t.Fatalf("unsupported table: status = %d body = %q, want 204", res.StatusCode, body)
	}

	res, body = f.do(t, http.MethodGet, "/contao/picker?table=tl_files&target=tl_content.nope.1", nil)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unknown target: status = %d, want 500", res.StatusCode)
	}
	if !strings.Contains(body, `does not exist`) {
		t.Fatalf("unknown target body: %s", body)
	}
}

func TestOperations(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, http.MethodGet, "/contao/tl_member/3/operations?do=member", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("row status = %d: %s", res.StatusCode, body)
	}
	if !strings.Contains(body, `href="contao?do=member&amp;act=edit&amp;id=3"`) {
		t.Fatalf("edit link missing: %s", body)
	}

	res, body = f.do(t, http.MethodGet, "/contao/tl_member/operations?do=member", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("global status = %d: %s", res.StatusCode, body)
	}
	if !strings.Contains(body, `href="contao?do=member&amp;act=select"`) {
		t.Fatalf("select link missing: %s", body)
	}

	res, _ = f.do(t, http.MethodGet, "/contao/tl_nope/operations", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown table status = %d, want 404", res.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, http.MethodGet, "/health", nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("health: status = %d body = %s", res.StatusCode, body)
	}

	f.do(t, http.MethodGet, "/contao/tl_member/operations", nil)
	_, body = f.do(t, http.MethodGet, "/metrics", nil)
	want := `dcaform_requests_total{method="GET",route="/contao/{table}/operations",status="2xx"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics missing %q:\n%s", want, body)
	}
}
