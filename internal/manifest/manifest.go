// Package manifest reads dbt source declarations from a compiled manifest.json.
package manifest

import (
	"errors"

	"github.com/elliotchance/orderedmap/v2"
)

// ErrManifestNotFound is returned when the manifest file does not exist.
var ErrManifestNotFound = errors.New("manifest file not found")

// TableConfig is one table declared under a dbt source.
type TableConfig struct {
	Name       string
	Identifier string         // remote table name, defaults to Name
	Columns    []string       // empty means all columns
	Meta       map[string]any // table-level meta
}

// SourceConfig groups the tables of one dbt source.
type SourceConfig struct {
	Name     string
	Database string
	Schema   string
	Tables   []TableConfig
	Meta     map[string]any
}

// Sources maps source name to its configuration in first-seen order.
type Sources = orderedmap.OrderedMap[string, *SourceConfig]

// NewSources returns an empty ordered source map.
func NewSources() *Sources {
	return orderedmap.NewOrderedMap[string, *SourceConfig]()
}

// TableCount returns the number of tables across all sources.
func TableCount(sources *Sources) int {
	n := 0
	for el := sources.Front(); el != nil; el = el.Next() {
		n += len(el.Value.Tables)
	}
	return n
}
