// Package plan turns parsed dbt sources into an ordered extraction plan.
package plan

import (
	"errors"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
	"github.com/dbsmedya/warehouse-to-go/internal/manifest"
)

// ErrSourceNotFound is returned when a source filter matches nothing.
var ErrSourceNotFound = errors.New("no sources found matching filter")

// ExtractionUnit describes one table to copy.
type ExtractionUnit struct {
	SourceName string
	Database   string
	Schema     string
	TableName  string
	Identifier string
	Columns    []string
	Meta       map[string]any
	RowLimit   int
	BatchSize  int
}

// GroupKey returns the "database.schema" key of the unit's group.
func (u ExtractionUnit) GroupKey() string {
	return GroupKey(u.Database, u.Schema)
}

// QualifiedName returns database.schema.identifier.
func (u ExtractionUnit) QualifiedName() string {
	return u.Database + "." + u.Schema + "." + u.Identifier
}

// Group is the list of units sharing one database and schema.
type Group struct {
	Key      string
	Database string
	Schema   string
	Units    []ExtractionUnit
}

// Plan maps "database.schema" keys to their groups in insertion order.
type Plan struct {
	groups *orderedmap.OrderedMap[string, *Group]
}

// GroupKey joins database and schema.
func GroupKey(database, schema string) string {
	return database + "." + schema
}

// Filter restricts sources to the one named. An empty name returns sources unchanged.
func Filter(sources *manifest.Sources, name string) (*manifest.Sources, error) {
	if name == "" {
		return sources, nil
	}
	src, ok := sources.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	out := manifest.NewSources()
	out.Set(name, src)
	return out, nil
}

// Build groups every table of sources by database and schema.
//
// Sources without a database or schema and tables without a name are skipped.
// A table's meta overlays its source's meta; a table without meta gets the
// source meta as is.
func Build(sources *manifest.Sources, extract config.ExtractConfig) *Plan {
	p := &Plan{groups: orderedmap.NewOrderedMap[string, *Group]()}

	for el := sources.Front(); el != nil; el = el.Next() {
		name, src := el.Key, el.Value
		if src.Database == "" || src.Schema == "" {
			continue
		}

		key := GroupKey(src.Database, src.Schema)
		for _, table := range src.Tables {
			identifier := table.Identifier
			if identifier == "" {
				identifier = table.Name
			}
			if identifier == "" {
				continue
			}
			// groups only exist once they hold a table
			group, ok := p.groups.Get(key)
			if !ok {
				group = &Group{Key: key, Database: src.Database, Schema: src.Schema}
				p.groups.Set(key, group)
			}
			group.Units = append(group.Units, ExtractionUnit{
				SourceName: name,
				Database:   src.Database,
				Schema:     src.Schema,
				TableName:  table.Name,
				Identifier: identifier,
				Columns:    table.Columns,
				Meta:       mergeMeta(src.Meta, table.Meta),
				RowLimit:   extract.RowLimit,
				BatchSize:  extract.BatchSize,
			})
		}
	}

	return p
}

func mergeMeta(source, table map[string]any) map[string]any {
	merged := make(map[string]any, len(source)+len(table))
	for k, v := range source {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = v
	}
	return merged
}

// Groups returns the groups in insertion order.
func (p *Plan) Groups() []*Group {
	out := make([]*Group, 0, p.groups.Len())
	for el := p.groups.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Group returns the group for a "database.schema" key.
func (p *Plan) Group(key string) (*Group, bool) {
	return p.groups.Get(key)
}

// Len returns the number of groups.
func (p *Plan) Len() int {
	return p.groups.Len()
}

// TableCount returns the number of units across all groups.
func (p *Plan) TableCount() int {
	n := 0
	for el := p.groups.Front(); el != nil; el = el.Next() {
		n += len(el.Value.Units)
	}
	return n
}
