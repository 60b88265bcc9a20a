// Package inserttag converts file references in rich text between the
// storage form ({{file::<uuid>}}) and the editor form (files/<path>).
package inserttag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound reports an unknown file uuid or path.
var ErrNotFound = errors.New("inserttag: file not found")

// DefaultUploadPath is the directory file references point into.
const DefaultUploadPath = "files"

// Files resolves file uuids and paths.
type Files interface {
	PathByUUID(ctx context.Context, id uuid.UUID) (string, error)
	UUIDByPath(ctx context.Context, path string) (uuid.UUID, error)
}

// Applies reports whether an rte setting uses the converting editor.
func Applies(rte string) bool {
	return strings.HasPrefix(rte, "tiny")
}

// Converter rewrites src/href attributes.
type Converter struct {
	files   Files
	toSrc   *regexp.Regexp
	fromSrc *regexp.Regexp
}

// New returns a converter resolving references through files. An empty
// uploadPath falls back to DefaultUploadPath.
func New(files Files, uploadPath string) *Converter {
	uploadPath = strings.Trim(strings.TrimSpace(uploadPath), "/")
	if uploadPath == "" {
		uploadPath = DefaultUploadPath
	}
	return &Converter{
		files:   files,
		toSrc:   regexp.MustCompile(`(?i)(src|href)="([^"]*)\{\{file::([^"}]+)\}\}"`),
		fromSrc: regexp.MustCompile(`(?i)(src|href)="(` + regexp.QuoteMeta(uploadPath) + `/[^"]+)"`),
	}
}

// ToSrc replaces {{file::uuid}} references with file paths. References
// that cannot be resolved keep the raw uuid.
func (c *Converter) ToSrc(ctx context.Context, data string) (string, error) {
	if c == nil || c.files == nil || !strings.Contains(data, "{{file::") {
		return data, nil
	}
	return c.replace(data, c.toSrc, func(m []string) (string, error) {
		attr, prefix, ref := m[1], m[2], m[3]
		id, err := uuid.Parse(ref)
		if err != nil {
			return attr + `="` + prefix + ref + `"`, nil
		}
		path, err := c.files.PathByUUID(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			return attr + `="` + prefix + ref + `"`, nil
		case err != nil:
			return "", fmt.Errorf("inserttag: resolve %s: %w", ref, err)
		}
		return attr + `="` + prefix + path + `"`, nil
	})
}

// FromSrc replaces file paths below the upload directory with
// {{file::uuid}} references. Unknown paths are left unchanged.
func (c *Converter) FromSrc(ctx context.Context, data string) (string, error) {
	if c == nil || c.files == nil {
		return data, nil
	}
	return c.replace(data, c.fromSrc, func(m []string) (string, error) {
		attr, path := m[1], m[2]
		id, err := c.files.UUIDByPath(ctx, path)
		switch {
		case errors.Is(err, ErrNotFound):
			return attr + `="` + path + `"`, nil
		case err != nil:
			return "", fmt.Errorf("inserttag: resolve %s: %w", path, err)
		}
		return attr + `="{{file::` + id.String() + `}}"`, nil
	})
}

func (c *Converter) replace(data string, pattern *regexp.Regexp, fn func([]string) (string, error)) (string, error) {
	matches := pattern.FindAllStringSubmatchIndex(data, -1)
	if len(matches) == 0 {
		return data, nil
	}

	var (
		b    strings.Builder
		last int
	)
	for _, loc := range matches {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = data[loc[2*i]:loc[2*i+1]]
			}
		}
		out, err := fn(groups)
		if err != nil {
			return "", err
		}
		b.WriteString(data[last:loc[0]])
		b.WriteString(out)
		last = loc[1]
	}
	b.WriteString(data[last:])
	return b.String(), nil
}

// Index is an in-memory Files implementation.
type Index struct {
	mu     sync.RWMutex
	paths  map[uuid.UUID]string
	byPath map[string]uuid.UUID
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{paths: make(map[uuid.UUID]string), byPath: make(map[string]uuid.UUID)}
}

// Add registers a file.
func (i *Index) Add(id uuid.UUID, path string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if old, ok := i.paths[id]; ok {
		delete(i.byPath, old)
	}
	i.paths[id] = path
	i.byPath[path] = id
}

func (i *Index) PathByUUID(_ context.Context, id uuid.UUID) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	path, ok := i.paths[id]
	if !ok {
		return "", ErrNotFound
	}
	return path, nil
}

func (i *Index) UUIDByPath(_ context.Context, path string) (uuid.UUID, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.byPath[path]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}
