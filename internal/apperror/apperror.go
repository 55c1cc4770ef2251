// Package apperror defines the domain error hierarchy shared by services.
// Handlers translate these into HTTP responses; services never import gin.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessLogic
	KindStateTransition
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessLogic:
		return "business_logic"
	case KindStateTransition:
		return "state_transition"
	case KindPermission:
		return "permission"
	default:
		return "internal"
	}
}

// Error is the base domain error: a kind, a stable code, a message and details.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches a cause, typically a service sentinel such as ErrInventoryService.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// With adds a detail entry and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func Validation(field, msg string) *Error {
	e := &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: msg}
	if field != "" {
		e.With("field", field)
	}
	return e
}

func NotFound(resource string, id any) *Error {
	msg := resource + " not found"
	e := &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: msg}
	e.With("resource_type", resource)
	if id != nil && fmt.Sprint(id) != "" {
		e.Message = fmt.Sprintf("%s (ID: %v)", msg, id)
		e.With("resource_id", fmt.Sprint(id))
	}
	return e
}

func BusinessLogic(rule, msg string) *Error {
	e := &Error{Kind: KindBusinessLogic, Code: "BUSINESS_LOGIC_ERROR", Message: msg}
	if rule != "" {
		e.With("rule", rule)
	}
	return e
}

func StateTransition(entity, from, to string) *Error {
	e := &Error{
		Kind:    KindStateTransition,
		Code:    "INVALID_STATE_TRANSITION",
		Message: fmt.Sprintf("invalid state transition for %s: %s -> %s", entity, from, to),
	}
	return e.With("entity_type", entity).With("current_state", from).With("target_state", to)
}

func Permission(action, resource string) *Error {
	e := &Error{Kind: KindPermission, Code: "PERMISSION_DENIED", Message: "permission denied"}
	if action != "" && resource != "" {
		e.Message = fmt.Sprintf("permission denied: %s on %s", action, resource)
	}
	if action != "" {
		e.With("action", action)
	}
	if resource != "" {
		e.With("resource", resource)
	}
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries a domain error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
