// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity was already resolved by another request.
var ErrConflict = errors.New("conflict: resource was already resolved")

// ErrValidation indicates invalid caller input. Wrap it with the field-level
// reason: fmt.Errorf("%w: description is required", domain.ErrValidation).
var ErrValidation = errors.New("validation error")

// ErrForbidden indicates the caller's role does not permit the operation.
var ErrForbidden = errors.New("forbidden")
