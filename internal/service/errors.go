// Package service implements the authentication/session lifecycle and the
// event workflow engine on top of the repository layer. Handlers translate
// the sentinel errors defined here into HTTP responses; nothing in this
// package knows about Echo.
package service

import "errors"

// ErrInvalidCredentials covers both "no such account" and "wrong
// password". Callers must never be able to tell which one happened.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrValidation marks malformed input or a business-rule violation the
// caller can fix and retry (password confirm mismatch, duplicate role,
// rejected reset token).
var ErrValidation = errors.New("validation failed")

// ErrSecurityToken means the presented refresh token is missing, unknown,
// revoked or expired. The caller must authenticate from scratch.
var ErrSecurityToken = errors.New("invalid or expired refresh token")

// ErrUnauthorized means the caller is authenticated but blocked by
// session/activity state (account deactivated, forced password change
// pending).
var ErrUnauthorized = errors.New("unauthorized")

// ErrSessionInvalidated is the specific unauthorized case where the
// token's session id has been superseded by a newer login or refresh. It
// is distinct from token expiry so clients can tell "log in again" apart
// from "another session took over".
var ErrSessionInvalidated = errors.New("session invalidated")

// ErrNotFound means a referenced entity does not exist.
var ErrNotFound = errors.New("not found")
