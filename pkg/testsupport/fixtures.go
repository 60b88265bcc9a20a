package testsupport

import (
	"embed"
	"fmt"
	"io/fs"
	"testing"

	"github.com/goliatone/go-dcaform/pkg/dca"
)

//go:embed schemas/*.yaml
var schemaFiles embed.FS

// SchemaFS exposes the fixture tables (tl_member, tl_content, tl_page,
// tl_files) as a filesystem rooted at the schema directory.
func SchemaFS() fs.FS {
	sub, err := fs.Sub(schemaFiles, "schemas")
	if err != nil {
		panic(fmt.Sprintf("testsupport: schema fixtures: %v", err))
	}
	return sub
}

// LoadStore parses the fixture tables. Every call returns a fresh store so
// tests that mutate sorting roots stay isolated.
func LoadStore(t testing.TB) *dca.Store {
	t.Helper()

	store, err := dca.LoadFS(SchemaFS())
	if err != nil {
		t.Fatalf("load fixture schema: %v", err)
	}
	return store
}
