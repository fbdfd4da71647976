package domain

import (
	"fmt"
	"strings"
)

// The workflow error taxonomy. These are business-rule outcomes, not faults:
// they are returned to the caller as structured errors, never retried and
// never swallowed. The API layer maps Code() to a stable wire error code so
// the UI never parses free text.

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Code returns the wire error code for a validation failure.
func (e *ValidationError) Code() string {
	if strings.Contains(e.Reason, "required") {
		return "missing_field"
	}
	return "validation"
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Code returns the wire error code for a missing entity.
func (e *NotFoundError) Code() string { return "not_found" }

// InvalidStateError reports an operation attempted from an illegal status.
// The message names the current status and the statuses the operation is
// legal from.
type InvalidStateError struct {
	Op      string
	Current IssueStatus
	Legal   []IssueStatus
}

func (e *InvalidStateError) Error() string {
	legal := make([]string, len(e.Legal))
	for i, s := range e.Legal {
		legal[i] = string(s)
	}
	return fmt.Sprintf("cannot %s issue in status %q: operation requires status %s",
		e.Op, e.Current, strings.Join(legal, " or "))
}

// Code returns the wire error code for an illegal transition.
func (e *InvalidStateError) Code() string { return "invalid_state" }

// ConflictError reports an operation that lost to a concurrent one, e.g. a
// second generation request for a configuration whose generation is still
// running.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}

// Code returns the wire error code for a concurrency conflict.
func (e *ConflictError) Code() string { return "conflict" }

// MethodNotSupportedError reports an operation that is intentionally
// unavailable, e.g. direct issue creation outside generate.
type MethodNotSupportedError struct {
	Op string
}

func (e *MethodNotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Op)
}

// Code returns the wire error code for an unsupported operation.
func (e *MethodNotSupportedError) Code() string { return "method_not_supported" }
