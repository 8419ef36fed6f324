package world

import "errors"

var (
	// ErrInvalidRequest marks malformed input: blank ids, blank action type,
	// bad display names or alignments.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks a reference to an unknown player.
	ErrNotFound = errors.New("not found")
	// ErrGenerationFailure is absorbed by the generators and replaced by fallback content.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrBroadcastFailure is dropped by the broadcaster.
	ErrBroadcastFailure = errors.New("broadcast failure")
)
