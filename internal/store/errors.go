package store

import "errors"

var (
	// ErrInconsistentState marks a broken storage invariant, e.g. two
	// non-finished games for one chat or two surviving players at finish
	// time. It indicates a bug, not a runtime condition, and is never
	// retried.
	ErrInconsistentState = errors.New("store: inconsistent game state")

	// ErrNoActiveGame is returned by writes that require a running game.
	ErrNoActiveGame = errors.New("store: no active game for chat")
)
