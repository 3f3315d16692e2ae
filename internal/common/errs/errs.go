package errs

import (
	"fmt"
	"strings"
)

// ValidationError is returned for malformed input: empty item lists,
// multi-vendor carts, out-of-range coordinates, ratings outside 1-5.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Msg)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
}

func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IllegalTransitionError is returned when the requested status is not
// reachable from the entity's current status. It carries the current
// status and the full set of legal successors for the caller.
type IllegalTransitionError struct {
	Entity  string
	Current string
	Target  string
	Allowed []string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s (allowed: %s)",
		e.Entity, e.Current, e.Target, strings.Join(e.Allowed, ", "))
}

func IllegalTransition(entity, current, target string, allowed []string) *IllegalTransitionError {
	return &IllegalTransitionError{Entity: entity, Current: current, Target: target, Allowed: allowed}
}

// ConflictError is returned when a concurrent mutation lost the race,
// e.g. a double driver assignment or a double transition from the same
// source status. Retryable from the caller's point of view.
type ConflictError struct {
	Entity string
	Msg    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Entity, e.Msg)
}

func Conflict(entity, msg string) *ConflictError {
	return &ConflictError{Entity: entity, Msg: msg}
}

// PermissionError is returned when the actor lacks capability over the entity.
type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Msg)
}

func Permission(msg string) *PermissionError {
	return &PermissionError{Msg: msg}
}

// NotFoundError is returned when the referenced entity does not exist
// or is not visible to the caller.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
