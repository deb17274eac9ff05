package domain

import "errors"

// Failure taxonomy. All failures surface to the immediate caller wrapped in
// one of these sentinels; match with errors.Is.
var (
	// ErrConfig marks a missing or invalid connection parameter, detected
	// at construction and not recoverable by retry.
	ErrConfig = errors.New("configuration error")

	// ErrEmbedding marks a failed embedding call (network, quota,
	// malformed input). The core performs no automatic retry.
	ErrEmbedding = errors.New("embedding error")

	// ErrStorage marks a failed vector index read or write.
	ErrStorage = errors.New("storage error")
)
