// Package sqlutil provides identifier quoting and query building for each warehouse dialect.
package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects the quoting and LIMIT syntax of a SQL engine.
type Dialect string

const (
	Snowflake Dialect = "snowflake"
	Postgres  Dialect = "postgres"
	MySQL     Dialect = "mysql"
	SQLServer Dialect = "sqlserver"
	DuckDB    Dialect = "duckdb"
)

// ParseDialect maps a dbt adapter type onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case Snowflake, Postgres, MySQL, SQLServer, DuckDB:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", s)
	}
}

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
// It escapes any existing backticks by doubling them.
// Example: "my_table" -> "`my_table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteDouble quotes an ANSI identifier (Postgres, DuckDB) with double quotes,
// doubling embedded quotes.
func QuoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBracket quotes a SQL Server identifier with brackets, doubling embedded
// closing brackets.
func QuoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Quote quotes name for dialect d. Snowflake names are validated instead of
// quoted, since a quoted Snowflake identifier becomes case-sensitive.
func (d Dialect) Quote(name string) (string, error) {
	switch d {
	case MySQL:
		return QuoteIdentifier(name), nil
	case SQLServer:
		return QuoteBracket(name), nil
	case Snowflake:
		if !IsValidIdentifier(name) {
			return "", &InvalidIdentifierError{Name: name}
		}
		return name, nil
	default:
		return QuoteDouble(name), nil
	}
}

// validIdentifierRegex matches identifiers that are safe to use unquoted.
var validIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// IsValidIdentifier checks if a name can be used as an unquoted identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must start with a letter or underscore and contain only alphanumeric characters, underscores or $)"
}
