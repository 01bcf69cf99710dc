package store

import (
	"fmt"

	"github.com/rosterhq/playerapi/config"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	name        string
	numbered    bool
	containsFmt string
}

var (
	// Postgres uses $n placeholders and strpos for substring matching.
	Postgres = Dialect{name: config.DriverPostgres, numbered: true, containsFmt: "strpos(%s, %s) > 0"}
	// SQLite uses ? placeholders and instr for substring matching.
	SQLite = Dialect{name: config.DriverSQLite, containsFmt: "instr(%s, %s) > 0"}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverSQLite:
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Name returns the driver name.
func (d Dialect) Name() string {
	return d.name
}

// Placeholder returns the bind marker for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Contains renders a case-sensitive substring predicate.
func (d Dialect) Contains(column, placeholder string) string {
	return fmt.Sprintf(d.containsFmt, column, placeholder)
}
