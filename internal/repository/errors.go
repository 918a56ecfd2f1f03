// Package repository implements the MySQL data access layer.  This file
// defines sentinel errors shared across repositories so that higher layers
// can distinguish failure scenarios without string matching.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a row
// owned by someone else.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot proceed because
// of conflicting state, such as a duplicate category name.  Handlers
// translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create when the email address is
// already registered.
var ErrEmailExists = errors.New("email already exists")
