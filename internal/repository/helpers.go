package repository

import "strings"

// escapeLike escapes LIKE metacharacters in a user-supplied search term so
// it matches literally. The backslash is the ESCAPE character in queries.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// nullableIDToValue converts a *int64 parent reference to a value suitable
// for SQLite storage. Returns nil (SQL NULL) for a root-level node.
func nullableIDToValue(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
