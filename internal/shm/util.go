package shm

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// canCreateOnDevShm reports whether /dev/shm has room for a region of the
// given size. Paths outside /dev/shm and non-Linux systems always pass; the
// kernel is the authority there.
func canCreateOnDevShm(size uint64, path string) bool {
	if runtime.GOOS == "linux" && strings.HasPrefix(path, "/dev/shm") {
		stat, err := disk.Usage("/dev/shm")
		if err != nil {
			return true
		}
		return stat.Free >= size
	}
	return true
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func safeRemoveShmFile(path string) bool {
	if !pathExists(path) {
		return false
	}
	return os.Remove(path) == nil
}
