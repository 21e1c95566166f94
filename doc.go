// Package uniplex multiplexes cooperative tasks onto a host engine that only
// ever accepts calls from a single goroutine. It provides a resource-slot
// scheduler with FIFO overflow, blocking and persistent task flavors, source
// inclusion, engine option toggles, and a borrow ledger with tracked views
// for safely sharing engine-owned buffers.
package uniplex
