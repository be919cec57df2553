// Package shm contains platform-specific helpers for placing lock words and
// their payloads in shared memory regions.
package shm

import "errors"

// ErrPlatform reports a shared-memory operation on an OS without an
// implementation.
var ErrPlatform = errors.New("shm: platform not supported")

// MappedRegion is a shared memory region mapped into this process.
type MappedRegion struct {
	// Addr is the mapped bytes. The base address is page-aligned, so it
	// satisfies any word-alignment requirement of state stored at offset 0.
	Addr []byte
	Name string
	Size int

	fd      int
	path    string
	created bool
}

// Created reports whether this mapping created the backing file, i.e. the
// caller owns cleanup of the file as well as the mapping.
func (r *MappedRegion) Created() bool {
	return r.created
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	// Name identifies the region; it becomes a file name under Dir.
	Name string
	// Size is the region size in bytes.
	Size int
	// Create makes the region if it does not exist and truncates it to
	// Size. Without Create the region must already exist.
	Create bool
	// Dir overrides the backing directory. Defaults to /dev/shm on Linux.
	Dir string
}
