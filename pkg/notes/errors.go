package notes

import "errors"

var (
	// ErrEmptyInput is returned when there is no text to process.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrBatchAborted wraps the fatal error that stopped a batch.
	ErrBatchAborted = errors.New("extraction aborted")
	// ErrRetriesExhausted marks a segment that failed every attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrDuplicateSegment reports two records with the same segment id.
	ErrDuplicateSegment = errors.New("duplicate segment id")
)
