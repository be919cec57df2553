package shmlock

import "errors"

// Lock operation outcomes. All are matched with errors.Is.
var (
	// ErrUninitialized reports an operation attempted before the lock state
	// was marked ready. Recoverable: initialize first.
	ErrUninitialized = errors.New("shmlock: lock state not initialized")

	// ErrWriteLocked reports a read or write operation blocked by an
	// existing writer. Recoverable: retry later.
	ErrWriteLocked = errors.New("shmlock: write lock held")

	// ErrReadLocked reports a write operation blocked by existing readers.
	// Recoverable: retry later.
	ErrReadLocked = errors.New("shmlock: read locks held")

	// ErrMaxReaders reports the reader count at capacity, or a read-path
	// retry loop that could not commit. Recoverable: back off and retry.
	ErrMaxReaders = errors.New("shmlock: reader limit reached")

	// ErrGeneralFailure reports an atomic commit that failed under
	// contention, or a release attempted without holding the lock.
	ErrGeneralFailure = errors.New("shmlock: lock state update failed")

	// ErrLockViolation reports an exhausted spin try counter. Fatal: the
	// caller must abandon the wait.
	ErrLockViolation = errors.New("shmlock: spin try counter exhausted")
)
