package shmlock

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Bit layout of the shared lock word. These masks are part of the wire
// format documented in doc.go; external tools inspecting a shared region
// interpret the word with them.
const (
	// InitializeMask selects the initialization byte (top 8 bits). A word
	// whose initialization byte is all ones is uninitialized.
	InitializeMask uint32 = 0xFF << 24
	// WriteLockMask selects the write-lock flag (top bit).
	WriteLockMask uint32 = 1 << 31
	// ReadLockMask selects the 24-bit reader count.
	ReadLockMask uint32 = ^InitializeMask

	// LockSize is the number of bytes the lock claims at the front of a
	// shared region. The protected payload starts at this offset.
	LockSize = 4

	// MaxReaders is the largest aggregate reader count the shared word can
	// represent.
	MaxReaders = 1<<24 - 1
	// MaxLocalReaders bounds the read locks a single instance may hold.
	MaxLocalReaders = 127
)

// Instance shadow byte layout. Bit 7 records holding the write lock, bits
// 0-6 count this instance's read locks, 0xFF is the uninitialized sentinel
// stored by AttachReset.
const (
	holdingWrite uint32 = 0x80
	holdingRead  uint32 = 0x7F
	shadowUninit uint32 = 0xFF
)

// casAttempts bounds every compare-and-swap retry loop. The loops only
// retry on contention over the same word, so exhaustion means the word is
// being hammered; the caller is told to back off rather than spinning here.
const casAttempts = 128

// RWLock is the packed-state lock over a caller-supplied address. The
// shared word is authoritative for mutual exclusion across every instance
// mapping the same bytes; the shadow field only bounds and validates this
// instance's own acquire/release symmetry.
//
// Instances are cheap and may be created and discarded freely by any
// thread or process mapping the region.
type RWLock struct {
	word *uint32
	held uint32 // shadow byte, always in 0x00..0xFF, accessed atomically
}

var _ Lock = (*RWLock)(nil)

// Attach constructs a lock over the 4 bytes behind addr. The address must
// reference at least LockSize valid bytes, 4-byte aligned, for the lifetime
// of the lock; the existing word contents are trusted as-is, so this is
// meant for regions whose lock state already exists. Attaching over garbage
// effectively constructs a poisoned lock.
//
// Attach panics on a nil or misaligned address. There is no lock object to
// report through, so this precondition violation is fatal by design of the
// construction contract.
func Attach(addr unsafe.Pointer) *RWLock {
	if addr == nil {
		panic("shmlock: attach over nil address")
	}
	if uintptr(addr)%LockSize != 0 {
		panic("shmlock: attach over misaligned address")
	}
	return &RWLock{word: (*uint32)(addr)}
}

// AttachReset constructs a lock over addr and atomically resets the word to
// the uninitialized sentinel, so Initialized reports false until Initialize
// is called. This invalidates any other lock instance concurrently
// referencing the same address. Same precondition and panic behavior as
// Attach.
func AttachReset(addr unsafe.Pointer) *RWLock {
	l := Attach(addr)
	atomic.StoreUint32(l.word, InitializeMask)
	atomic.StoreUint32(&l.held, shadowUninit)
	return l
}

// AttachBytes constructs a lock over the first LockSize bytes of a mapped
// region. Panics if the region is too small or its base is misaligned.
func AttachBytes(mem []byte) *RWLock {
	if len(mem) < LockSize {
		panic("shmlock: region smaller than lock word")
	}
	return Attach(unsafe.Pointer(&mem[0]))
}

// Initialize unconditionally clears all lock state, shared and local, and
// marks the word ready for use. Callers must guarantee no locks are
// outstanding on any instance over the same address.
func (l *RWLock) Initialize() {
	atomic.StoreUint32(l.word, 0)
	atomic.StoreUint32(&l.held, 0)
}

// Initialized reports whether the lock state has been marked ready. False
// only when the shared initialization byte and the instance shadow are both
// at their uninitialized sentinels.
func (l *RWLock) Initialized() bool {
	return atomic.LoadUint32(l.word)&InitializeMask < InitializeMask ||
		atomic.LoadUint32(&l.held) < shadowUninit
}

// ReadLocked reports whether any reader holds the lock: the shared count is
// nonzero, or this instance's shadow records an active read lock.
func (l *RWLock) ReadLocked() bool {
	return atomic.LoadUint32(l.word)&ReadLockMask > 0 ||
		atomic.LoadUint32(&l.held)&holdingRead > 0
}

// WriteLocked reports whether a writer holds the lock, on the shared word
// or in this instance's shadow.
func (l *RWLock) WriteLocked() bool {
	return atomic.LoadUint32(l.word)&WriteLockMask != 0 ||
		atomic.LoadUint32(&l.held)&holdingWrite != 0
}

// Locked reports whether the lock is unusable right now: poisoned
// (uninitialized word) or held by this instance.
func (l *RWLock) Locked() bool {
	return atomic.LoadUint32(l.word)&InitializeMask == InitializeMask ||
		atomic.LoadUint32(&l.held) > 0
}

// busy is the spin predicate: poisoned, or held by anyone on either side of
// the word, shared or local.
func (l *RWLock) busy() bool {
	return !l.Initialized() || l.WriteLocked() || l.ReadLocked()
}

// LockRead acquires one shared read lock. The attempt is refused with
// ErrMaxReaders when the shared count is at MaxReaders or this instance
// already holds MaxLocalReaders read locks. The reader count is never
// incremented while the write flag is set.
func (l *RWLock) LockRead() error {
	if !l.Initialized() {
		return refuse("read", ErrUninitialized)
	}
	if l.WriteLocked() {
		return refuse("read", ErrWriteLocked)
	}
	for i := 0; i < casAttempts; i++ {
		cur := atomic.LoadUint32(l.word)
		if cur&WriteLockMask != 0 {
			return refuse("read", ErrWriteLocked)
		}
		if cur&ReadLockMask == ReadLockMask ||
			atomic.LoadUint32(&l.held)&holdingRead == MaxLocalReaders {
			return refuse("read", ErrMaxReaders)
		}
		if atomic.CompareAndSwapUint32(l.word, cur, cur+1) {
			// Shadow follows the word, not atomically with it. The window
			// only affects this instance's own subsequent calls.
			atomic.AddUint32(&l.held, 1)
			readAcquired.Inc()
			return nil
		}
	}
	return refuse("read", ErrMaxReaders)
}

// UnlockRead releases one shared read lock. The shared count is floored at
// zero; releasing with no read lock recorded, shared or local, is refused
// with ErrMaxReaders. Releasing while write-locked is a protocol violation
// reported as ErrWriteLocked.
func (l *RWLock) UnlockRead() error {
	if !l.Initialized() {
		return refuse("read", ErrUninitialized)
	}
	if l.WriteLocked() {
		return refuse("read", ErrWriteLocked)
	}
	for i := 0; i < casAttempts; i++ {
		cur := atomic.LoadUint32(l.word)
		if cur&ReadLockMask == 0 || atomic.LoadUint32(&l.held)&holdingRead == 0 {
			return refuse("read", ErrMaxReaders)
		}
		if atomic.CompareAndSwapUint32(l.word, cur, cur-1) {
			atomic.AddUint32(&l.held, ^uint32(0))
			readReleased.Inc()
			return nil
		}
	}
	return refuse("read", ErrMaxReaders)
}

// LockWrite acquires the exclusive write lock. Writers require exclusivity:
// any reader refuses the attempt with ErrReadLocked, an existing writer
// with ErrWriteLocked. Exhausting the commit loop yields ErrGeneralFailure.
func (l *RWLock) LockWrite() error {
	if !l.Initialized() {
		return refuse("write", ErrUninitialized)
	}
	if l.WriteLocked() {
		return refuse("write", ErrWriteLocked)
	}
	if l.ReadLocked() {
		return refuse("write", ErrReadLocked)
	}
	for i := 0; i < casAttempts; i++ {
		cur := atomic.LoadUint32(l.word)
		if cur&WriteLockMask != 0 {
			return refuse("write", ErrWriteLocked)
		}
		if cur&ReadLockMask != 0 {
			return refuse("write", ErrReadLocked)
		}
		if atomic.CompareAndSwapUint32(l.word, cur, cur|WriteLockMask) {
			atomic.OrUint32(&l.held, holdingWrite)
			writeAcquired.Inc()
			return nil
		}
	}
	return refuse("write", ErrGeneralFailure)
}

// UnlockWrite releases the write lock. Releasing a lock nobody holds is a
// successful no-op. Releasing a write lock the shared word records but this
// instance never took is refused with ErrGeneralFailure.
func (l *RWLock) UnlockWrite() error {
	if !l.WriteLocked() {
		return nil
	}
	if !l.Initialized() {
		return refuse("write", ErrUninitialized)
	}
	for i := 0; i < casAttempts; i++ {
		if atomic.LoadUint32(&l.held)&holdingWrite == 0 {
			return refuse("write", ErrGeneralFailure)
		}
		cur := atomic.LoadUint32(l.word)
		if atomic.CompareAndSwapUint32(l.word, cur, cur&^WriteLockMask) {
			atomic.AndUint32(&l.held, ^holdingWrite)
			writeReleased.Inc()
			return nil
		}
	}
	return refuse("write", ErrGeneralFailure)
}

// Spin performs one polling step of a caller-side busy-wait loop. It
// increments *tries, returns true while the word is held or poisoned, and
// false once the caller may proceed. A held word observed with the counter
// at its maximum is reported as ErrLockViolation; the caller must abandon
// the wait rather than loop forever.
func (l *RWLock) Spin(tries *uint64) (bool, error) {
	*tries++
	if l.busy() {
		if *tries == math.MaxUint64 {
			spinExhaustions.Inc()
			return false, ErrLockViolation
		}
		return true, nil
	}
	return false, nil
}
