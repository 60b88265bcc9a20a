// Package httpapi exposes field rows, operation buttons and the picker over
// HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcaform/pkg/authz"
	"github.com/goliatone/go-dcaform/pkg/buttons"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/editing"
	"github.com/goliatone/go-dcaform/pkg/metrics"
	"github.com/goliatone/go-dcaform/pkg/picker"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/submission"
	"github.com/goliatone/go-dcaform/pkg/urls"
)

// Response headers.
const (
	HeaderNoReload   = "X-DCA-No-Reload"
	HeaderUploadable = "X-DCA-Uploadable"
	// HeaderUser names the backend user the request is made for.
	HeaderUser = "X-DCA-User"
)

// Option customises a Handler.
type Option func(*Handler)

// WithLookup sets the record source for active records.
func WithLookup(lookup records.Lookup) Option {
	return func(h *Handler) {
		h.lookup = lookup
	}
}

// WithButtons enables the operation button endpoints.
func WithButtons(gen *buttons.Generator) Option {
	return func(h *Handler) {
		h.buttons = gen
	}
}

// WithAuthorizer sets the privileged-session check.
func WithAuthorizer(a *authz.Authorizer) Option {
	return func(h *Handler) {
		h.authz = a
	}
}

// WithMetrics records request metrics in m and serves handler on path.
// A nil handler serves the default Prometheus registry.
func WithMetrics(m *metrics.Collector, path string, handler http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
		h.metricsPath = path
		h.metricsHandler = handler
	}
}

// WithScript sets the backend script links are generated against.
func WithScript(script string) Option {
	return func(h *Handler) {
		h.script = script
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler serves the backend endpoints.
type Handler struct {
	renderer       *editing.Renderer
	picker         *picker.Picker
	buttons        *buttons.Generator
	lookup         records.Lookup
	authz          *authz.Authorizer
	metrics        *metrics.Collector
	metricsPath    string
	metricsHandler http.Handler
	script         string
	logger         zerolog.Logger
}

// New returns a handler rendering rows with renderer and opening pickers
// with p.
func New(renderer *editing.Renderer, p *picker.Picker, opts ...Option) *Handler {
	h := &Handler{
		renderer: renderer,
		picker:   p,
		script:   urls.DefaultScript,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Router builds the chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	if h.metrics != nil {
		r.Use(NewMetricsMiddleware(h.metrics))
	}

	r.Get("/health", Health)
	if h.metricsPath != "" {
		handler := h.metricsHandler
		if handler == nil {
			handler = promhttp.Handler()
		}
		r.Handle(h.metricsPath, handler)
	}

	r.Route("/contao", func(r chi.Router) {
		r.Get("/picker", h.Picker)
		r.Get("/{table}/operations", h.GlobalOperations)
		r.Get("/{table}/{id}/operations", h.RowOperations)
		r.Get("/{table}/{id}/fields/{field}", h.Field)
		r.Post("/{table}/{id}/fields/{field}", h.Field)
	})
	return r
}

// Field renders one field row. Submissions that leave the form in the
// no-reload state answer 422.
func (h *Handler) Field(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	table, field := chi.URLParam(r, "table"), chi.URLParam(r, "field")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	req, err := submission.FromHTTP(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dc := editing.NewEditContext(table, field, id)
	dc.Request = req
	dc.Token = req.RequestToken()

	record, err := h.activeRecord(r, table, id)
	if err != nil {
		h.logger.Error().Err(err).Str("table", table).Int64("id", id).Msg("record lookup failed")
		writeError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	dc.ActiveRecord = record

	if user := r.Header.Get(HeaderUser); user != "" && h.authz != nil {
		ok, err := h.authz.IsAdmin(user)
		if err != nil {
			h.logger.Warn().Err(err).Str("user", user).Msg("privilege check failed")
		}
		dc.Privileged = ok
	}

	out, err := h.renderer.Row(ctx, dc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost && dc.NoReload() {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set(HeaderNoReload, strconv.FormatBool(dc.NoReload()))
	if dc.Uploadable() {
		w.Header().Set(HeaderUploadable, "true")
	}
	writeHTML(w, status, out)
}

// Picker initialises the picker and answers one option input per entry of
// the options query parameter.
func (h *Handler) Picker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pc, err := h.picker.Init(r.Context(), q.Get("table"), q.Get("target"), q.Get("value"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var b strings.Builder
	b.WriteString("<div" + pc.Attributes() + ">")
	for _, option := range strings.Split(q.Get("options"), ",") {
		if option = strings.TrimSpace(option); option == "" {
			continue
		}
		b.WriteString("\n" + pc.InputField(option, ""))
	}
	b.WriteString("\n</div>")
	writeHTML(w, http.StatusOK, b.String())
}

// RowOperations renders the buttons of one record. The previous and next
// query parameters carry the sibling ids for the move buttons.
func (h *Handler) RowOperations(w http.ResponseWriter, r *http.Request) {
	if h.buttons == nil {
		writeError(w, http.StatusNotFound, "operations are not enabled")
		return
	}
	table := chi.URLParam(r, "table")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	record, err := h.activeRecord(r, table, id)
	if err != nil {
		h.logger.Error().Err(err).Str("table", table).Int64("id", id).Msg("record lookup failed")
		writeError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	if record == nil {
		record = records.Record{"id": id}
	}

	q := r.URL.Query()
	out, err := h.buttons.Row(buttons.Row{
		Table:    table,
		Record:   record,
		Previous: q.Get("previous"),
		Next:     q.Get("next"),
		URLs:     h.links(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, out)
}

// GlobalOperations renders the toolbar of a table.
func (h *Handler) GlobalOperations(w http.ResponseWriter, r *http.Request) {
	if h.buttons == nil {
		writeError(w, http.StatusNotFound, "operations are not enabled")
		return
	}
	out, err := h.buttons.Global(chi.URLParam(r, "table"), h.links(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, out)
}

func (h *Handler) links(r *http.Request) *urls.Builder {
	q := r.URL.Query()
	ref := q.Get("ref")
	q.Del("previous")
	q.Del("next")
	return urls.NewBuilder(h.script, q.Encode(), ref)
}

func (h *Handler) activeRecord(r *http.Request, table string, id int64) (records.Record, error) {
	if h.lookup == nil || id == 0 {
		return nil, nil
	}
	record, err := h.lookup.FindByPrimaryKey(r.Context(), table, id)
	if errors.Is(err, records.ErrNotFound) {
		return nil, nil
	}
	return record, err
}

// fail maps domain errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, picker.ErrUnsupported):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, editing.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, picker.ErrInternal):
		status = http.StatusInternalServerError
	case errors.Is(err, dca.ErrSchemaNotFound):
		status = http.StatusNotFound
	}
	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, err.Error())
}

// Health answers a liveness check.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// NewLoggingMiddleware logs every request except health checks and metrics
// scrapes at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request counts and durations per route
// pattern.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(r.Method, route, statusLabel(ww.Status()), time.Since(start))
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
