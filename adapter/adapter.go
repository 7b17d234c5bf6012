// Package adapter renders driver specific positional placeholders.
package adapter

import (
	"fmt"
	"strings"
)

// ParamAdapter maps to valid positional parameters in a DBMS.
// For example, MySQL uses ? for every parameter, while Postgres uses $NUM and Oracle uses :NUM
type ParamAdapter func(pos int) string

func MySQL(pos int) string {
	return "?"
}

func Sqlite(pos int) string {
	return "?"
}

func Postgres(pos int) string {
	return fmt.Sprintf("$%d", pos)
}

func Oracle(pos int) string {
	return fmt.Sprintf(":%d", pos)
}

// ForName picks the adapter for a parameter style or a database/sql driver name.
// Unknown names fall back to Postgres.
func ForName(name string) ParamAdapter {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL
	case "sqlite", "sqlite3", "sqlcipher":
		return Sqlite
	case "oracle", "godror", "oci8":
		return Oracle
	default:
		return Postgres
	}
}
