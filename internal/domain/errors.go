// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrSandboxViolation indicates a workspace path resolved outside its root.
var ErrSandboxViolation = errors.New("path escapes workspace root")
