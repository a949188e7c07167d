package errors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput             = errors.New("empty input")
	ErrInvalid                = errors.New("invalid")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrTooMany                = errors.New("too many requests")
	ErrEmbeddingUnavailable   = errors.New("embedding unavailable")
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
	ErrStoreWrite             = errors.New("store write failed")
	ErrStoreQuery             = errors.New("store query failed")
	ErrGenerationUnavailable  = errors.New("generation unavailable")
)

// StageError tags a pipeline failure with the stage it happened in, so the
// caller can report which step of ingest/ask broke.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func IsCallerError(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInvalid)
}
