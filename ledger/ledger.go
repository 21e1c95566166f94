// Package ledger tracks borrows of raw memory ranges handed out by the host
// engine. The engine provides no aliasing guarantees for buffer content, so
// shared/exclusive access discipline is enforced dynamically: any number of
// shared borrows of a range may coexist, an exclusive borrow excludes all
// others. Borrow failures are logic-level contention signals, not transient
// conditions - retrying without releasing a competing borrow is meaningless.
package ledger

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBorrowed is returned when an exclusive borrow is requested for a
	// range that overlaps an outstanding borrow of either kind.
	ErrBorrowed = errors.New("range is already borrowed")

	// ErrBorrowedExclusively is returned when a shared borrow is requested
	// for a range that overlaps an outstanding exclusive borrow.
	ErrBorrowedExclusively = errors.New("range is already borrowed exclusively")
)

// Range identifies a half-open span [Start, End) of tracked memory.
type Range struct {
	Start uintptr
	End   uintptr
}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

type sharedRecord struct {
	span  Range
	count int
}

// Ledger is a registry of currently borrowed ranges. The zero value is ready
// for use; most callers use the process-wide instance via the package-level
// functions.
type Ledger struct {
	mu        sync.Mutex
	shared    []sharedRecord
	exclusive []Range
}

// New returns an empty ledger. Separate instances are useful in tests; tracked
// views always go through the process-wide default.
func New() *Ledger {
	return &Ledger{}
}

var std = New()

// Default returns the process-wide ledger.
func Default() *Ledger { return std }

// TryBorrow records a shared borrow of r. If r was already borrowed shared its
// refcount is incremented. Fails with ErrBorrowedExclusively when an exclusive
// borrow overlaps r.
func (l *Ledger) TryBorrow(r Range) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.exclusive {
		if e.Overlaps(r) {
			return ErrBorrowedExclusively
		}
	}
	for i := range l.shared {
		if l.shared[i].span == r {
			l.shared[i].count++
			return nil
		}
	}
	l.shared = append(l.shared, sharedRecord{span: r, count: 1})
	return nil
}

// TryBorrowMut records an exclusive borrow of r. Fails with ErrBorrowed when
// any borrow, shared or exclusive, overlaps r.
func (l *Ledger) TryBorrowMut(r Range) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.exclusive {
		if e.Overlaps(r) {
			return ErrBorrowed
		}
	}
	for i := range l.shared {
		if l.shared[i].span.Overlaps(r) {
			return ErrBorrowed
		}
	}
	l.exclusive = append(l.exclusive, r)
	return nil
}

// CloneShared increments the refcount of an existing shared borrow. Calling it
// for a range without an active shared record is a logic error and panics: a
// guard can only be cloned while it holds its borrow.
func (l *Ledger) CloneShared(r Range) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.shared {
		if l.shared[i].span == r {
			l.shared[i].count++
			return
		}
	}
	panic(fmt.Sprintf("ledger: clone of untracked shared range [%#x, %#x)", r.Start, r.End))
}

// UnborrowShared decrements the refcount of a shared borrow, removing the
// record when it reaches zero.
func (l *Ledger) UnborrowShared(r Range) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.shared {
		if l.shared[i].span == r {
			l.shared[i].count--
			if l.shared[i].count == 0 {
				l.shared = append(l.shared[:i], l.shared[i+1:]...)
			}
			return
		}
	}
	panic(fmt.Sprintf("ledger: unborrow of untracked shared range [%#x, %#x)", r.Start, r.End))
}

// UnborrowOwned removes an exclusive borrow.
func (l *Ledger) UnborrowOwned(r Range) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.exclusive {
		if l.exclusive[i] == r {
			l.exclusive = append(l.exclusive[:i], l.exclusive[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("ledger: unborrow of untracked exclusive range [%#x, %#x)", r.Start, r.End))
}

// ReplaceBorrowMut retargets an exclusive borrow from old to new under a
// single lock acquisition. An in-place resize can move the tracked span
// without ever exposing a window in which neither range is borrowed.
func (l *Ledger) ReplaceBorrowMut(old, new Range) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.exclusive {
		if l.exclusive[i] == old {
			l.exclusive[i] = new
			return
		}
	}
	panic(fmt.Sprintf("ledger: replace of untracked exclusive range [%#x, %#x)", old.Start, old.End))
}

// TryBorrow records a shared borrow of r in the process-wide ledger.
func TryBorrow(r Range) error { return std.TryBorrow(r) }

// TryBorrowMut records an exclusive borrow of r in the process-wide ledger.
func TryBorrowMut(r Range) error { return std.TryBorrowMut(r) }

// CloneShared increments the refcount of a shared borrow in the process-wide ledger.
func CloneShared(r Range) { std.CloneShared(r) }

// UnborrowShared releases one shared borrow of r in the process-wide ledger.
func UnborrowShared(r Range) { std.UnborrowShared(r) }

// UnborrowOwned releases the exclusive borrow of r in the process-wide ledger.
func UnborrowOwned(r Range) { std.UnborrowOwned(r) }

// ReplaceBorrowMut retargets an exclusive borrow in the process-wide ledger.
func ReplaceBorrowMut(old, new Range) { std.ReplaceBorrowMut(old, new) }
