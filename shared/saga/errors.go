package saga

import (
	"errors"
	"fmt"
)

// Store sentinels. Implementations return these (possibly wrapped) so callers can match with errors.Is.
var (
	ErrAlreadyExists     = errors.New("saga transaction already exists")
	ErrNotFound          = errors.New("saga transaction not found")
	ErrInvalidTransition = errors.New("invalid saga status transition")
	ErrStepNotCompleted  = errors.New("compensation recorded for a step that never completed")
	ErrLeaseHeld         = errors.New("saga is being driven by another orchestrator")
)

// Code classifies saga failures
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeStepTransport       Code = "STEP_TRANSPORT_ERROR"
	CodeStepTimeout         Code = "STEP_TIMEOUT"
	CodeStepRejected        Code = "STEP_REJECTED"
	CodeCompensationFailure Code = "COMPENSATION_FAILURE"
	CodeStateStore          Code = "STATE_STORE_ERROR"
)

// Error is a classified saga failure
type Error struct {
	Code Code
	Step string
	Err  error
}

func NewError(code Code, step string, err error) *Error {
	return &Error{Code: code, Step: step, Err: err}
}

func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s at step %s: %v", e.Code, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the classification of err, or an empty code for unclassified errors
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// storeError classifies a persistence failure as STATE_STORE_ERROR. ErrAlreadyExists and
// ErrNotFound pass through untouched; a rejected transition means another writer got there
// first and is classified like any other store failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return NewError(CodeStateStore, "", err)
}

func codeForOutcome(outcome StepOutcome) Code {
	switch outcome {
	case OutcomeTimeout:
		return CodeStepTimeout
	case OutcomeError:
		return CodeStepTransport
	default:
		return CodeStepRejected
	}
}
