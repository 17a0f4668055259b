package sqlutil

import (
	"errors"
	"fmt"
	"strings"
)

var errEmptyName = errors.New("table name is required")

// TableRef renders the fully qualified name of a remote table.
//
// Snowflake uses identifier('DB.SCHEMA.TABLE'). MySQL has no catalog level, so
// its reference is `schema`.`table`. Empty leading parts are omitted.
func (d Dialect) TableRef(database, schema, table string) (string, error) {
	if table == "" {
		return "", errEmptyName
	}
	parts := []string{database, schema, table}
	if d == MySQL {
		parts = parts[1:]
	}

	var names []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		q, err := d.Quote(p)
		if err != nil {
			return "", err
		}
		names = append(names, q)
	}

	if d == Snowflake {
		return "identifier(" + QuoteString(strings.Join(names, ".")) + ")", nil
	}
	return strings.Join(names, "."), nil
}

// SelectQuery composes the extraction query for one table. An empty columns
// slice selects every column; a limit <= 0 adds no LIMIT clause.
func SelectQuery(d Dialect, database, schema, table string, columns []string, limit int) (string, error) {
	from, err := d.TableRef(database, schema, table)
	if err != nil {
		return "", err
	}

	projection := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			q, err := d.Quote(c)
			if err != nil {
				return "", fmt.Errorf("column %q: %w", c, err)
			}
			quoted[i] = q
		}
		projection = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if d == SQLServer && limit > 0 {
		fmt.Fprintf(&sb, "TOP (%d) ", limit)
	}
	sb.WriteString(projection)
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	if d != SQLServer && limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String(), nil
}
