package rag

import "errors"

// Error taxonomy for the answering pipeline. Callers classify failures with
// errors.Is; the HTTP layer maps these to statuses and user-facing messages.
var (
	// ErrConfiguration marks invalid chunking/index parameters. Fatal at
	// startup, never per-query.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable marks an unreachable embedding backend. The
	// current operation fails; no silent retry.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrIndexCorrupt marks an unreadable persisted index. Requires an
	// operator reindex; never auto-repaired.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrGenerationUnavailable marks a completion-service failure. Surfaced
	// to the user as a plain failure message; never retried automatically.
	ErrGenerationUnavailable = errors.New("completion service unavailable")
)
