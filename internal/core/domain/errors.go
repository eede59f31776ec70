package domain

import "errors"

var (
	// ErrQueueEmpty is returned by a dequeue on an empty pending queue;
	// the caller must trigger a playlist fetch first.
	ErrQueueEmpty = errors.New("domain: pending queue is empty")

	// ErrNoStations indicates the user has no playable stations.
	ErrNoStations = errors.New("domain: no stations loaded")

	// ErrUnknownStation indicates a token that resolves to no entry in the
	// station collection.
	ErrUnknownStation = errors.New("domain: unknown station token")

	// ErrSameStation indicates a no-op station change to the token that is
	// already current.
	ErrSameStation = errors.New("domain: station already selected")
)
