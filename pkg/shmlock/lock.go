package shmlock

// Lock is the capability contract satisfied by any lock representation
// stored inside shared memory. The default implementation is RWLock;
// alternative binary layouts (64-bit atomics, different reserved-bit
// budgets) can be substituted without touching call sites.
//
// No operation blocks. Every call completes in a bounded number of atomic
// steps and reports success, refusal, or error; waiting is built by the
// caller from Spin and an external retry policy.
type Lock interface {
	// Initialized reports whether the lock state has been marked ready for
	// use, i.e. the shared initialization byte and the instance shadow are
	// not both at their uninitialized sentinels.
	Initialized() bool
	// ReadLocked reports whether any reader holds the lock, combining the
	// shared reader count with this instance's own shadow state.
	ReadLocked() bool
	// WriteLocked reports whether a writer holds the lock, shared or local.
	WriteLocked() bool
	// Locked reports whether the lock is unusable right now: poisoned
	// (uninitialized) or held by this instance.
	Locked() bool
	// LockRead acquires one shared read lock.
	LockRead() error
	// UnlockRead releases one shared read lock.
	UnlockRead() error
	// LockWrite acquires the exclusive write lock.
	LockWrite() error
	// UnlockWrite releases the write lock. Releasing a lock nobody holds is
	// a successful no-op.
	UnlockWrite() error
	// Spin performs a single polling step for a caller-side busy-wait loop.
	// It increments *tries and returns true while the lock is still held.
	// A locked word observed with *tries at its maximum is reported as
	// ErrLockViolation: unbounded spinning is treated as fatal.
	Spin(tries *uint64) (bool, error)
}

// StateString renders a lock's observable state for logs and debugging.
func StateString(l Lock) string {
	w, r := l.WriteLocked(), l.ReadLocked()
	switch {
	case w && r:
		return "Lock { Poisoned }"
	case w:
		return "Lock { Write }"
	case r:
		return "Lock { Read }"
	default:
		return "Lock { None }"
	}
}
