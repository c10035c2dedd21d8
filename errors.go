package tuplekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for TupleKit operations.
var (
	// ErrTypeNotFound is returned when a check names an object type the
	// active model does not declare.
	ErrTypeNotFound = errors.New("tuplekit: object type not found in model")

	// ErrRelationNotFound is returned when a check names a relation the
	// object type does not declare.
	ErrRelationNotFound = errors.New("tuplekit: relation not found in model")

	// ErrMaxDepthExceeded is returned when a check's recursion exceeds the
	// configured depth limit. It is an evaluation fault, not a denial.
	ErrMaxDepthExceeded = errors.New("tuplekit: max evaluation depth exceeded")

	// ErrCycleDetected is returned for cyclic rewrite chains when the engine
	// runs with strict cycle handling. The default engine resolves cycles as
	// a deny instead.
	ErrCycleDetected = errors.New("tuplekit: cycle detected during evaluation")

	// ErrInvalidRef is returned for malformed user/object references or
	// tuple keys.
	ErrInvalidRef = errors.New("tuplekit: invalid reference")

	// ErrDuplicateTuple is returned when writing a tuple that already exists
	// as a live row.
	ErrDuplicateTuple = errors.New("tuplekit: tuple already exists")

	// ErrTupleNotFound is returned when deleting a tuple that has no live row.
	ErrTupleNotFound = errors.New("tuplekit: tuple not found")

	// ErrNoActiveModel is returned when no authorization model is active.
	ErrNoActiveModel = errors.New("tuplekit: no active authorization model")

	// ErrModelNotFound is returned when a model version id does not exist.
	ErrModelNotFound = errors.New("tuplekit: authorization model not found")

	// ErrModelActive is returned when deleting the active model.
	ErrModelActive = errors.New("tuplekit: cannot delete the active model")

	// ErrStaleRead is returned when a consistency token requires newer state
	// than the store has seen.
	ErrStaleRead = errors.New("tuplekit: store behind requested consistency token")

	// ErrBatchTooLarge is returned when a batch check exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("tuplekit: batch check too large")

	// ErrDenied is returned by RequirePermission-style call sites when a
	// check resolves to deny.
	ErrDenied = errors.New("tuplekit: permission denied")

	// ErrStorage is returned when a storage operation fails.
	ErrStorage = errors.New("tuplekit: storage error")
)

// Error wraps a sentinel error with evaluation context.
type Error struct {
	Err          error  // underlying sentinel error
	Message      string // additional context
	User         string // user reference involved (if applicable)
	Relation     string // relation involved (if applicable)
	Object       string // object reference involved (if applicable)
	ModelVersion string // model version involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// WithUser adds the user reference to the error.
func (e *Error) WithUser(user string) *Error {
	e.User = user
	return e
}

// WithRelation adds the relation to the error.
func (e *Error) WithRelation(relation string) *Error {
	e.Relation = relation
	return e
}

// WithObject adds the object reference to the error.
func (e *Error) WithObject(object string) *Error {
	e.Object = object
	return e
}

// WithModel adds the model version to the error.
func (e *Error) WithModel(versionID string) *Error {
	e.ModelVersion = versionID
	return e
}

// wrapEval guarantees callers always receive a typed error: already-typed
// errors pass through, anything else is wrapped as a storage fault.
func wrapEval(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return err
	}
	return NewError(ErrStorage, err.Error())
}

// IsTypeNotFound checks if an error means the object type is undeclared.
func IsTypeNotFound(err error) bool {
	return errors.Is(err, ErrTypeNotFound)
}

// IsRelationNotFound checks if an error means the relation is undeclared.
func IsRelationNotFound(err error) bool {
	return errors.Is(err, ErrRelationNotFound)
}

// IsMaxDepthExceeded checks if an error is a depth-limit fault.
func IsMaxDepthExceeded(err error) bool {
	return errors.Is(err, ErrMaxDepthExceeded)
}

// IsCycleDetected checks if an error is a strict-mode cycle fault.
func IsCycleDetected(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}

// IsDuplicateTuple checks if an error is a live-row uniqueness violation.
func IsDuplicateTuple(err error) bool {
	return errors.Is(err, ErrDuplicateTuple)
}

// IsDenied checks if an error is a permission denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDenied)
}

// IsInvalidRef checks if an error is a malformed reference.
func IsInvalidRef(err error) bool {
	return errors.Is(err, ErrInvalidRef)
}

// Diagnostic is a structured compile-time finding with its source position.
type Diagnostic struct {
	Pos     Position
	Message string
}

// String formats the diagnostic as "line:col: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

// CompileError carries every diagnostic produced while compiling DSL source.
// Syntax and semantic problems are reported this way, never as generic
// errors.
type CompileError struct {
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "tuplekit: compile failed"
	case 1:
		return "tuplekit: compile failed: " + e.Diagnostics[0].String()
	default:
		return fmt.Sprintf("tuplekit: compile failed: %s (and %d more)",
			e.Diagnostics[0].String(), len(e.Diagnostics)-1)
	}
}

// IsCompileError extracts the CompileError from an error chain, if present.
func IsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
