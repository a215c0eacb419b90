// Package store provides the persistence collaborator for user records.
//
// Implementations report failures as *Error values carrying a store-specific
// code (a PostgreSQL SQLSTATE) and optional metadata such as the columns that
// violated a uniqueness constraint. Callers classify these codes; the store
// itself never decides HTTP semantics.
package store

import (
	"context"
	"fmt"

	"github.com/iliamunaev/users-api/internal/model"
)

// Store-specific error codes. They follow PostgreSQL SQLSTATE values so the
// memory and Postgres implementations report identical codes.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeInvalidText         = "22P02"
	CodeNoRows              = "P0002"
)

// Metadata keys used in Error.Meta.
const (
	MetaTarget     = "target"
	MetaConstraint = "constraint"
	MetaTable      = "table"
)

// Error is a failure reported by the store.
type Error struct {
	Code string
	Meta map[string]any
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("store %s: %v", e.Code, e.Err)
	}
	return "store " + e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Target returns the offending field names of a constraint violation, if known.
func (e *Error) Target() []string {
	if e == nil {
		return nil
	}
	t, _ := e.Meta[MetaTarget].([]string)
	return t
}

// Unique selects exactly one user. Exactly one field should be set.
type Unique struct {
	ID    string
	Email string
}

// UserStore is the typed CRUD surface the services depend on.
type UserStore interface {
	// FindUnique returns the matching user, or found=false when none exists.
	FindUnique(ctx context.Context, by Unique) (u model.User, found bool, err error)
	// Create inserts u and returns the stored row.
	Create(ctx context.Context, u model.User) (model.User, error)
	// Update applies patch to the user with the given id. A missing row is
	// reported as *Error with CodeNoRows.
	Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error)
	Count(ctx context.Context, f model.UserFilter) (int, error)
	FindMany(ctx context.Context, f model.UserFilter, p model.Page) ([]model.User, error)
	Close() error
}
