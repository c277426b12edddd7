package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every error Run returns is a *StageError matching exactly one
// of these with errors.Is.
var (
	ErrInput          = errors.New("input error")
	ErrConfiguration  = errors.New("configuration error")
	ErrReconstruction = errors.New("reconstruction failure")
	ErrExport         = errors.New("export error")
)

// ErrNoTriangles is the cause of a reconstruction failure whose mesh came out
// empty.
var ErrNoTriangles = errors.New("mesh has no triangles")

// StageError reports which stage aborted a conversion.
type StageError struct {
	Stage string
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func fail(stage string, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
