package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dbsmedya/warehouse-to-go/internal/logger"
)

type manifestFile struct {
	Sources map[string]json.RawMessage `json:"sources"`
}

type sourceNode struct {
	SourceName string          `json:"source_name"`
	Database   string          `json:"database"`
	Schema     string          `json:"schema"`
	Name       string          `json:"name"`
	Identifier string          `json:"identifier"`
	Columns    json.RawMessage `json:"columns"`
	Meta       map[string]any  `json:"meta"`
	SourceMeta map[string]any  `json:"source_meta"`
}

// Parse reads the manifest at path and returns its sources.
func Parse(path string, log *logger.Logger) (*Sources, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return Decode(f, log)
}

// Decode parses manifest JSON from r.
//
// Source nodes are visited in sorted unique-id order. The first node of a source
// sets its database, schema and meta; every node with a name adds a table.
// Nodes that do not decode, or whose columns are neither a list nor an object,
// are logged and skipped.
func Decode(r io.Reader, log *logger.Logger) (*Sources, error) {
	if log == nil {
		log = logger.NewNop()
	}

	var m manifestFile
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	ids := make([]string, 0, len(m.Sources))
	for id := range m.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sources := NewSources()
	for _, id := range ids {
		var node sourceNode
		if err := json.Unmarshal(m.Sources[id], &node); err != nil {
			log.Warnw("Skipping malformed source node", "node", id, "error", err)
			continue
		}
		if node.SourceName == "" {
			continue
		}

		src, ok := sources.Get(node.SourceName)
		if !ok {
			meta := node.SourceMeta
			if meta == nil {
				meta = node.Meta
			}
			src = &SourceConfig{
				Name:     node.SourceName,
				Database: node.Database,
				Schema:   node.Schema,
				Meta:     copyMeta(meta),
			}
			sources.Set(node.SourceName, src)
		}

		if node.Name == "" {
			continue
		}
		columns, err := parseColumns(node.Columns)
		if err != nil {
			log.Warnw("Skipping source node with malformed columns", "node", id, "error", err)
			continue
		}
		identifier := node.Identifier
		if identifier == "" {
			identifier = node.Name
		}
		src.Tables = append(src.Tables, TableConfig{
			Name:       node.Name,
			Identifier: identifier,
			Columns:    columns,
			Meta:       copyMeta(node.Meta),
		})
	}

	return sources, nil
}

// parseColumns accepts a list of names or dbt's {"name": {...}} object, whose
// key order is kept.
func parseColumns(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, nil
		}
		return names, nil
	case '{':
		return objectColumnNames(raw)
	default:
		return nil, fmt.Errorf("unexpected columns value %s", raw)
	}
}

func objectColumnNames(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // {
		return nil, err
	}

	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected column key %v", tok)
		}

		var col struct {
			Name string `json:"name"`
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		// a column entry that is not an object still contributes its key
		_ = json.Unmarshal(value, &col)
		if col.Name == "" {
			col.Name = key
		}
		names = append(names, col.Name)
	}
	return names, nil
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
