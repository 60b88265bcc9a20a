// Package icon renders backend theme images as <img> tags. Bare icon names
// resolve through the asset resolver of a go-theme renderer config.
package icon

import (
	"html"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultTheme is the backend theme used when none is configured.
const DefaultTheme = "flexible"

// themeIconSize is the edge length of the bundled theme icons.
const themeIconSize = "16"

// Config returns the renderer config of a backend theme. Bare icon names
// resolve to <assetsURL>system/themes/<name>/icons/<key>.
func Config(name, variant, assetsURL string) *theme.RendererConfig {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTheme
	}
	dir := assetsURL + "system/themes/" + name + "/icons/"
	return &theme.RendererConfig{
		Theme:   name,
		Variant: variant,
		AssetURL: func(key string) string {
			if key == "" {
				return ""
			}
			return dir + key
		},
	}
}

// Set renders the icons of one theme. A nil Set uses DefaultTheme.
type Set struct {
	cfg *theme.RendererConfig
}

var defaultSet = &Set{cfg: Config(DefaultTheme, "", "")}

// New returns a set resolving icons through cfg. A nil config or one
// without an asset resolver falls back to DefaultTheme.
func New(cfg *theme.RendererConfig) *Set {
	if cfg == nil || cfg.AssetURL == nil {
		return defaultSet
	}
	return &Set{cfg: cfg}
}

// Theme returns the theme name.
func (s *Set) Theme() string {
	if s == nil {
		s = defaultSet
	}
	return s.cfg.Theme
}

// Path returns the public path of src. Bare file names are theme icons;
// anything containing a slash is used as given.
func (s *Set) Path(src string) string {
	if s == nil {
		s = defaultSet
	}
	src = strings.TrimSpace(src)
	if src == "" || strings.Contains(src, "/") {
		return src
	}
	return s.cfg.AssetURL(src)
}

// HTML returns the <img> tag for src. attrs is appended verbatim after the
// alt attribute and must already be escaped.
func (s *Set) HTML(src, alt, attrs string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	themed := !strings.Contains(src, "/")

	var b strings.Builder
	b.WriteString(`<img src="`)
	b.WriteString(escapeURL(s.Path(src)))
	b.WriteString(`"`)
	if themed {
		b.WriteString(` width="` + themeIconSize + `" height="` + themeIconSize + `"`)
	}
	b.WriteString(` alt="`)
	b.WriteString(html.EscapeString(alt))
	b.WriteString(`"`)
	if attrs = strings.TrimSpace(attrs); attrs != "" {
		b.WriteString(" ")
		b.WriteString(attrs)
	}
	b.WriteString(">")
	return b.String()
}

func escapeURL(path string) string {
	return strings.NewReplacer(`"`, "%22", " ", "%20", "<", "%3C", ">", "%3E").Replace(path)
}
