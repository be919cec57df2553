// Package shmlock implements a reader-writer lock that lives inside a block
// of memory shared across process and thread boundaries, such as a
// memory-mapped file region.
//
// Unlike sync.RWMutex, whose storage belongs to one process, this lock is
// constructed directly over a caller-supplied raw address and keeps its
// entire state in a packed 4-byte word so it travels with the mapped region.
// Several independent processes may hold independent lock instances over the
// same bytes; mutual exclusion is implemented with single-word atomic
// compare-and-swap retry loops, never with a kernel mutex.
//
// # Wire format
//
// The shared lock word occupies the first 4 bytes behind the address and is
// visible to every process mapping that memory:
//
//	bit  31     write-lock flag (WriteLockMask)
//	bits 24-31  initialization byte (InitializeMask); all ones means
//	            "uninitialized" and poisons every operation
//	bits 0-23   reader count (ReadLockMask), at most 16,777,215
//
// These masks are part of the on-disk/in-memory format: external tools
// inspecting a shared region must interpret the word with them.
//
// Each lock instance additionally keeps a process-private shadow byte that
// bounds and validates that instance's own acquire/release pairing (one
// write lock, up to 127 read locks). The shadow byte is never visible to
// other instances and never authoritative for mutual exclusion.
//
// # Limitations
//
// A writer that crashes while holding the lock leaves the write flag set;
// there is no heartbeat or liveness detection. Recovery is the caller's
// problem, typically via AttachReset followed by Initialize once the caller
// has established that no holder survives.
package shmlock
