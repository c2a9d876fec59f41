// Package apperr holds the sentinel errors shared across package
// boundaries. Domain-specific sentinels (inheritance cycles, paths outside
// the vault) live with the packages that raise them.
package apperr

import "errors"

var (
	// ErrNotFound marks lookups for notes or entries that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotManaged marks attempts to process files the pipeline does not
	// recognise (neither note nor configured media).
	ErrNotManaged = errors.New("not a managed file type")
)
