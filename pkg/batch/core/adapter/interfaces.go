// Package adapter holds the contracts shared by every resource adapter (storage, database).
package adapter

// ResourceConnection represents a generic connection to any resource (e.g., database, storage).
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "local", "s3", "sqlite").
	Type() string
	// Name returns the connection name (e.g., "input", "output").
	Name() string
}
