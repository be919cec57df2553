//go:build windows

package shm

import (
	"context"
)

// MapRegion maps or creates a shared memory region. Not implemented on
// Windows; CreateFileMapping/MapViewOfFile support has no user yet.
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, ErrPlatform
}

// UnmapRegion unmaps and closes the shared memory region.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	return ErrPlatform
}

// Unlink removes the region's backing file if it still exists.
func Unlink(region *MappedRegion) bool {
	return false
}
