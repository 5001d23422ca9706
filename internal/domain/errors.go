package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrNotFound means the corpus holds nothing relevant to the query.
	// It is a valid, user-visible outcome, not a retrieval failure.
	ErrNotFound = errors.New("docsrag: no matching documentation")

	// ErrNoContext is returned by the assembler when it has zero matches
	// to work with, so the caller can pick a no-answer prompt template.
	ErrNoContext = errors.New("docsrag: no context available")

	// ErrDimensionMismatch indicates model/config drift; it aborts the
	// whole ingestion run rather than a single record.
	ErrDimensionMismatch = errors.New("docsrag: embedding dimension mismatch")

	ErrEmptyQuery = errors.New("docsrag: empty query")
)

// Pipeline stages used in StageError, so callers can tell an embedding
// failure from a search or generation failure.
const (
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageStore    = "store"
	StageGenerate = "generate"
)

// StageError wraps an error with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("docsrag.%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WrapStage wraps an error with stage context. Returns nil for nil.
func WrapStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// MarkTransient tags an error as retryable (rate limit, timeout,
// network blip).
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is tagged as retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
