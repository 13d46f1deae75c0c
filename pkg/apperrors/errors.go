package apperrors

import (
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidDefinition = errors.New("invalid definition")
	ErrInvalidConnection = errors.New("invalid connection parameters")

	ErrTypeMapping         = errors.New("type mapping error")
	ErrUnsupportedEngine   = errors.New("unsupported engine")
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	ErrExecution           = errors.New("statement execution failed")

	// ErrDestructiveChangeNotApproved is a soft outcome, not a failure: the
	// plan ran but withheld its destructive steps.
	ErrDestructiveChangeNotApproved = models.ErrDestructiveSkipped
)

// TypeMappingError reports a logical type that cannot be expressed on an engine.
type TypeMappingError struct {
	Type   models.LogicalType
	Engine models.Engine
	Reason string
}

func (e *TypeMappingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot map type %s on engine %s", e.Type, e.Engine)
	}
	return fmt.Sprintf("cannot map type %s on engine %s: %s", e.Type, e.Engine, e.Reason)
}

func (e *TypeMappingError) Is(target error) bool { return target == ErrTypeMapping }

// UnsupportedEngineError reports an engine outside the supported set.
type UnsupportedEngineError struct {
	Engine models.Engine
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported engine: %q", string(e.Engine))
}

func (e *UnsupportedEngineError) Is(target error) bool { return target == ErrUnsupportedEngine }

// MetadataUnavailableError wraps a failure of the live schema reader. Callers
// must not treat it as an empty schema.
type MetadataUnavailableError struct {
	Operation string
	Err       error
}

func (e *MetadataUnavailableError) Error() string {
	return fmt.Sprintf("metadata unavailable (%s): %v", e.Operation, e.Err)
}

func (e *MetadataUnavailableError) Unwrap() error { return e.Err }

func (e *MetadataUnavailableError) Is(target error) bool { return target == ErrMetadataUnavailable }

// ExecutionError wraps a statement the engine rejected.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %v", e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// NewUnsupportedEngine is a shorthand used by engine switches.
func NewUnsupportedEngine(engine models.Engine) error {
	return &UnsupportedEngineError{Engine: engine}
}
