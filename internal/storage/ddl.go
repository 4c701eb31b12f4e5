package storage

import (
	"fmt"
	"strings"
	"sync"

	"csvclean/internal/transformer"
)

// TypeYear is a column holding ISO dates that is stored as an integer year.
const TypeYear = "year"

// Column is one destination column. Type is a transformer.Type* constant or
// TypeYear.
type Column struct {
	Name string
	Type string
}

// Dialect renders backend-specific DDL.
type Dialect struct {
	Name string
	// Quote quotes a single identifier segment.
	Quote func(string) string
	// Types maps column types to SQL types; unmapped types use Types[text].
	Types map[string]string
}

// QuoteFQN quotes a possibly schema-qualified name such as "public.t".
// Empty segments are dropped.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, d.Quote(p))
		}
	}
	return strings.Join(out, ".")
}

func (d Dialect) sqlType(t string) string {
	if s, ok := d.Types[t]; ok {
		return s
	}
	return d.Types[transformer.TypeText]
}

// CreateTableSQL builds a deterministic CREATE TABLE IF NOT EXISTS statement.
// Every column is nullable.
func (d Dialect) CreateTableSQL(table string, cols []Column) (string, error) {
	fqn := strings.TrimSpace(table)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Name)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%s ddl: column %d has an empty name", d.Name, i)
		}
		defs[i] = d.Quote(c.Name) + " " + d.sqlType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", d.QuoteFQN(fqn), strings.Join(defs, ",\n  ")), nil
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDialect adds or replaces the dialect for kind.
func RegisterDialect(kind string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (Dialect, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return Dialect{}, fmt.Errorf("no dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}

// QuoteDouble quotes with ANSI double quotes, doubling embedded quotes.
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
