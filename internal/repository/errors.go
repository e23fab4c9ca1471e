// Package repository implements MySQL persistence for the engage domain.
// Sentinel errors defined here let services and handlers distinguish
// failure scenarios without inspecting driver error strings.
package repository

import "errors"

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert collides with the unique
// email index.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when an insert collides with any other unique
// constraint, e.g. granting a role the user already holds.
var ErrDuplicate = errors.New("duplicate entry")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as deleting someone else's comment.
var ErrForbidden = errors.New("forbidden")
