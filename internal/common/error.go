// Package common holds the few helpers and sentinel errors shared by the
// client packages. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInternal marks failures that are not the user's fault.
	ErrInternal = errors.New("internal error")
)
