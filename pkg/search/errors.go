package search

import "errors"

var (
	// ErrInvalidPayload is returned when message content is not an indexing payload.
	ErrInvalidPayload = errors.New("search.invalid_payload")

	// ErrIngestFailed is returned when the backend rejects a document.
	ErrIngestFailed = errors.New("search.ingest_failed")
)
