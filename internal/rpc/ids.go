package rpc

import "sync/atomic"

// IDCounter hands out request ids. Ids start at 0, strictly increase and are never
// reused for the lifetime of the counter. Share one counter between every registry that
// writes to the same connection.
type IDCounter struct {
	next atomic.Uint64
}

// NewIDCounter creates a counter starting at 0.
func NewIDCounter() *IDCounter {
	return &IDCounter{}
}

// Next returns the next id.
func (c *IDCounter) Next() uint64 {
	return c.next.Add(1) - 1
}
