package config

// Default settings, overridable through the environment or a .env file.
const (
	// DefaultDBDir is the directory under the user's home that holds the
	// casetree database.
	DefaultDBDir = ".casetree"

	// DefaultDBFile is the SQLite database file name.
	DefaultDBFile = "casetree.db"

	// DefaultPageSize is the search page size when a request does not
	// specify a limit.
	DefaultPageSize = 50
)
