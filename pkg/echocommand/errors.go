package echocommand

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the matching oracle was never set up (e.g. missing API key).
	ErrNotConfigured = errors.New("matching service not configured")

	// ErrOutOfRange is returned for an instruction index outside the registry.
	ErrOutOfRange = errors.New("instruction index out of range")

	// ErrStorage covers local write/read failures under the media root.
	ErrStorage = errors.New("storage error")

	// ErrServiceUnavailable means the oracle could not be reached or refused the call.
	ErrServiceUnavailable = errors.New("matching service unavailable")

	// ErrInvalidRequest is a malformed caller request, e.g. an empty merge list.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyMerge is the invalid request of merging an empty reference list.
	ErrEmptyMerge = fmt.Errorf("%w: no audio files provided for merging", ErrInvalidRequest)

	// ErrNothingProcessed means a merge found no usable input clip.
	ErrNothingProcessed = errors.New("no audio files could be processed")

	// ErrMergeFailure wraps decode/concat/encode failures during a merge.
	ErrMergeFailure = errors.New("audio merge failed")
)
