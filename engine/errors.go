package engine

import "errors"

// ErrCrossedRest is returned by Book.Insert when a raw insert would cross
// the opposite side at rest. Marketable orders must be routed through the
// matching engine instead.
var ErrCrossedRest = errors.New("engine: insert would cross the book at rest")

// ErrNotFound is returned by Book.Cancel when the order id is unknown. It
// is not a failure: cancelling an unknown id is an idempotent no-op.
var ErrNotFound = errors.New("engine: order not found")
