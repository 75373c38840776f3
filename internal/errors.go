package internal

import "fmt"

// StorageError represents errors accessing source stores on disk
type StorageError struct {
	Path string
	Op   string // "open", "read", "copy", "walk"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing a single record. Malformed records
// are skipped with a warning, never fatal.
type ParseError struct {
	Source string // "globalStorage", "workspaceStorage", "agent", "legacy"
	Key    string // storage key or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ResolveError represents errors normalizing a conversation
type ResolveError struct {
	ExternalID string
	Err        error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve error [%s]: %v", e.ExternalID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
