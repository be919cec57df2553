//go:build linux

package shm

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MapRegion maps or creates a shared memory region (Linux implementation).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", opts.Size)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := opts.Dir
	if dir == "" {
		dir = "/dev/shm"
	}
	path := filepath.Join(dir, opts.Name)
	flags := unix.O_RDWR
	if opts.Create {
		if !canCreateOnDevShm(uint64(opts.Size), path) {
			return nil, fmt.Errorf("shm: not enough space for %s, size %d", path, opts.Size)
		}
		flags |= unix.O_CREAT
	}
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(opts.Size)); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("ftruncate %s: %w", path, err)
		}
	}
	addr, err := unix.Mmap(fd, 0, opts.Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &MappedRegion{
		Addr:    addr,
		Name:    opts.Name,
		Size:    opts.Size,
		fd:      fd,
		path:    path,
		created: opts.Create,
	}, nil
}

// UnmapRegion unmaps the region and closes its descriptor. The backing file
// stays; Unlink removes it.
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	if region == nil || region.Addr == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := unix.Munmap(region.Addr); err != nil {
		return fmt.Errorf("munmap %s: %w", region.path, err)
	}
	region.Addr = nil
	if err := unix.Close(region.fd); err != nil {
		return fmt.Errorf("close %s: %w", region.path, err)
	}
	return nil
}

// Unlink removes the region's backing file if it still exists. Returns
// whether a file was removed.
func Unlink(region *MappedRegion) bool {
	if region == nil || region.path == "" {
		return false
	}
	return safeRemoveShmFile(region.path)
}
