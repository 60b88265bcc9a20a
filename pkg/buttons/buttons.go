// Package buttons renders the operation links of list views: the per-record
// buttons (edit, show, move up/down, ...) and the global toolbar.
package buttons

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-dcaform/pkg/callback"
	"github.com/goliatone/go-dcaform/pkg/dca"
	"github.com/goliatone/go-dcaform/pkg/icon"
	"github.com/goliatone/go-dcaform/pkg/labels"
	"github.com/goliatone/go-dcaform/pkg/palette"
	"github.com/goliatone/go-dcaform/pkg/records"
	"github.com/goliatone/go-dcaform/pkg/submission"
	"github.com/goliatone/go-dcaform/pkg/urls"
	"github.com/goliatone/go-dcaform/pkg/widgets"
)

// RowButton is handed to custom per-record button callbacks.
type RowButton struct {
	Table      string
	Key        string
	Record     records.Record
	Href       string
	Label      string
	Title      string
	Icon       string
	Attributes string
	RootIDs    []int64
	ChildIDs   []int64
	Circular   bool
	Previous   string
	Next       string
}

// GlobalButton is handed to custom global button callbacks.
type GlobalButton struct {
	Table      string
	Key        string
	Href       string
	Label      string
	Title      string
	Class      string
	Attributes string
	Root       []int64
}

// Callback signatures for operation button_callback references.
type (
	RowFunc    = func(b RowButton) string
	GlobalFunc = func(b GlobalButton) string
)

// Option customises a Generator.
type Option func(*Generator)

// WithLabels sets the translation table for move and show titles.
func WithLabels(table *labels.Table) Option {
	return func(g *Generator) {
		if table != nil {
			g.labels = table
		}
	}
}

// WithCallbacks sets the registry custom button callbacks resolve against.
func WithCallbacks(reg *callback.Registry) Option {
	return func(g *Generator) {
		g.callbacks = reg
	}
}

// WithIcons sets the theme icons of buttons and global background images.
func WithIcons(icons *icon.Set) Option {
	return func(g *Generator) {
		g.icons = icons
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// Generator renders operation buttons of the tables in a schema store.
type Generator struct {
	store     *dca.Store
	callbacks *callback.Registry
	labels    *labels.Table
	icons     *icon.Set
	logger    zerolog.Logger
}

// New returns a generator reading operations from store.
func New(store *dca.Store, opts ...Option) *Generator {
	g := &Generator{
		store:  store,
		labels: labels.New(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Row describes the list entry buttons are generated for.
type Row struct {
	Table  string
	Record records.Record
	// RootIDs are the root-level node ids of the current tree view.
	RootIDs  []int64
	ChildIDs []int64
	Circular bool
	// Previous and Next are the sibling ids used by the move buttons.
	// Non-numeric or empty values disable the respective direction.
	Previous string
	Next     string
	// URLs derives links from the current request.
	URLs *urls.Builder
}

// Row renders the buttons of one record.
func (g *Generator) Row(row Row) (string, error) {
	ops, err := g.store.Operations(row.Table)
	if err != nil {
		return "", err
	}
	if len(ops) == 0 {
		return "", nil
	}
	links := row.URLs
	if links == nil {
		links = urls.NewBuilder("", "", "")
	}

	rawID := palette.Stringify(row.Record.Get("id"))
	id := html.EscapeString(rawID)
	sortingRoot := g.store.SortingRoot(row.Table)

	var b strings.Builder
	for _, op := range ops {
		label := op.Label.Title
		if label == "" {
			label = op.Key
		}
		titleFormat := op.Label.Help
		if titleFormat == "" {
			titleFormat = op.Key
		}
		title := withID(titleFormat, id)

		var attributes string
		if op.Attributes != "" {
			attributes = " " + strings.TrimLeft(withID(op.Attributes, id), " \t\n")
		}
		if strings.Contains(attributes, `class="`) {
			attributes = strings.Replace(attributes, `class="`, `class="`+op.Key+" ", 1)
		} else {
			attributes = ` class="` + op.Key + `"` + attributes
		}

		if op.Button != nil {
			fn, err := callback.As[RowFunc](g.callbacks, *op.Button)
			if err != nil {
				return "", fmt.Errorf("buttons: %s.%s callback: %w", row.Table, op.Key, err)
			}
			b.WriteString(fn(RowButton{
				Table:      row.Table,
				Key:        op.Key,
				Record:     row.Record,
				Href:       op.Href,
				Label:      label,
				Title:      title,
				Icon:       op.Icon,
				Attributes: attributes,
				RootIDs:    row.RootIDs,
				ChildIDs:   row.ChildIDs,
				Circular:   row.Circular,
				Previous:   row.Previous,
				Next:       row.Next,
			}))
			continue
		}

		if !op.IsMove() {
			if op.Key == "show" {
				modal := g.showTitle(row.Table, op, rawID)
				b.WriteString(`<a href="` + links.AddToURL(op.Href+"&amp;id="+rawID+"&amp;popup=1") + `" title="` + html.EscapeString(title) + `"`)
				b.WriteString(` onclick="Backend.openModalIframe({'title':'` + html.EscapeString(strings.ReplaceAll(modal, "'", `\'`)) + `','url':this.href});return false"`)
				b.WriteString(attributes + ">" + g.icons.HTML(op.Icon, label, "") + "</a> ")
				continue
			}
			request := op.Href + "&amp;id=" + rawID
			if links.Query("nb") != "" {
				request += "&amp;nc=1"
			}
			b.WriteString(`<a href="` + links.AddToURL(request) + `" title="` + html.EscapeString(title) + `"` + attributes + ">" + g.icons.HTML(op.Icon, label, "") + "</a> ")
			continue
		}

		href := op.Href
		if href == "" {
			href = "&amp;act=move"
		}
		movable := !containsID(row.RootIDs, rawID) || len(sortingRoot) == 0
		for _, dir := range []string{"up", "down"} {
			sibling := row.Previous
			if dir == "down" {
				sibling = row.Next
			}
			dirLabel, dirTitle := g.labels.Pair(row.Table + "." + dir)
			if dirLabel == "" {
				dirLabel = dir
			}
			if dirTitle == "" {
				dirTitle = dir
			}

			sid, numeric := neighbor(sibling)
			if numeric && movable {
				b.WriteString(`<a href="` + links.AddToURL(href+"&amp;id="+rawID) + "&amp;sid=" + strconv.FormatInt(sid, 10) + `" title="` + html.EscapeString(dirTitle) + `"` + attributes + ">")
				b.WriteString(g.icons.HTML(dir+".svg", dirLabel, "") + "</a> ")
			} else {
				b.WriteString(g.icons.HTML(dir+"_.svg", "", ""))
			}
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Global renders the toolbar of table. In select mode only operations
// flagged showOnSelect are shown.
func (g *Generator) Global(table string, links *urls.Builder) (string, error) {
	ops, err := g.store.GlobalOperations(table)
	if err != nil {
		return "", err
	}
	if links == nil {
		links = urls.NewBuilder("", "", "")
	}
	selecting := links.Query("act") == submission.ActSelect

	var b strings.Builder
	for _, op := range ops {
		if selecting && !op.ShowOnSelect {
			continue
		}
		label, title := op.Label.Title, op.Label.Help
		var attributes string
		if op.Attributes != "" {
			attributes = " " + strings.TrimLeft(op.Attributes, " \t\n")
		}

		class := op.Class
		if op.Icon != "" {
			class = strings.TrimSpace(class + " header_icon")
			attributes = ` style="background-image:url('` + g.icons.Path(op.Icon) + `')"` + attributes
		}
		if label == "" {
			label = op.Key
		}
		if title == "" {
			title = label
		}

		if op.Button != nil {
			fn, err := callback.As[GlobalFunc](g.callbacks, *op.Button)
			if err != nil {
				return "", fmt.Errorf("buttons: %s.%s callback: %w", table, op.Key, err)
			}
			b.WriteString(fn(GlobalButton{
				Table:      table,
				Key:        op.Key,
				Href:       op.Href,
				Label:      label,
				Title:      title,
				Class:      class,
				Attributes: attributes,
				Root:       g.store.SortingRoot(table),
			}))
			continue
		}

		b.WriteString(`<a href="` + links.AddToURL(op.Href) + `" class="` + class + `" title="` + html.EscapeString(title) + `"` + attributes + ">" + label + "</a> ")
	}
	return b.String(), nil
}

// showTitle is the modal heading of the show operation.
func (g *Generator) showTitle(table string, op dca.Operation, id string) string {
	if _, help := g.labels.Pair(table + ".show"); help != "" {
		return withID(help, id)
	}
	if op.Label.Help != "" {
		return withID(op.Label.Help, id)
	}
	g.logger.Debug().Str("table", table).Msg("no show label, using operation key")
	return op.Key
}

// withID fills the %s and %d placeholders of format with id.
func withID(format, id string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	return strings.NewReplacer("%s", id, "%d", id).Replace(format)
}

func neighbor(raw string) (int64, bool) {
	if !widgets.IsNumeric(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func containsID(ids []int64, raw string) bool {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return slices.Contains(ids, id)
}
