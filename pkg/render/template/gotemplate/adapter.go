package gotemplate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-dcaform/pkg/render/template"
)

// DefaultExtension is appended to template names without one. Backend
// templates are named like be_tinyMCE.html5.
const DefaultExtension = ".html5"

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	extension  string
	globalData map[string]any
}

// WithBaseDir loads templates from a directory on disk. Templates found
// there take precedence over those of WithFS.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithGlobalData seeds values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Engine renders pongo2 templates. Parsed templates are cached by path.
type Engine struct {
	mu sync.RWMutex

	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	ext       string
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine. Either a base directory or an fs.FS is required.
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: DefaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}

	engine := &Engine{
		set:       pongo2.NewSet("dcaform", loaders...),
		templates: make(map[string]*pongo2.Template),
		ext:       cfg.extension,
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("gotemplate: apply global data: %w", err)
	}
	return engine, nil
}

// Render treats name as inline content when it holds template tags and as
// a template name otherwise.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if strings.Contains(name, "{{") || strings.Contains(name, "{%") {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders the named template.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	path := name
	if !strings.HasSuffix(path, e.ext) {
		path += e.ext
	}
	tmpl, err := e.lookup(path)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, data, fmt.Sprintf("template %q", path), out)
}

// RenderString parses and renders inline template content.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	tmpl, err := e.set.FromString(content)
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse template string: %w", err)
	}
	return e.execute(tmpl, data, "template string", out)
}

// RegisterFilter registers a filter on the pongo2 filter table. Filters are
// process-wide; registering an existing name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// GlobalContext merges data into the values every template sees.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.set == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if data == nil {
		return nil
	}
	globals, err := toContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set.Globals == nil {
		e.set.Globals = make(pongo2.Context)
	}
	e.set.Globals.Update(globals)
	return nil
}

func (e *Engine) execute(tmpl *pongo2.Template, data any, what string, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", what, err)
	}

	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func (e *Engine) lookup(path string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[path]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.templates[path]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load template %q: %w", path, err)
	}
	e.templates[path] = tmpl
	return tmpl, nil
}

// toContext accepts maps directly; other values go through a JSON round
// trip so struct tags decide the template keys.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		out := make(pongo2.Context, len(v))
		for key, value := range v {
			if key = strings.TrimSpace(key); key != "" {
				out[key] = value
			}
		}
		return out, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out := pongo2.Context{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("jsquote") {
		_ = pongo2.RegisterFilter("jsquote", filterJSQuote)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterJSQuote escapes a value for use inside a double quoted script
// string.
func filterJSQuote(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "</", `<\/`)
	return pongo2.AsSafeValue(r.Replace(in.String())), nil
}
