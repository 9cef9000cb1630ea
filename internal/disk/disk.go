package disk

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// GetDiskUsage reports usage for the filesystem holding path.
// Free space is Bavail, the space an unprivileged process can actually use.
func GetDiskUsage(path string) (usedPercent float64, freeBytes int64, totalBytes int64, err error) {
	var stat syscall.Statfs_t
	if err = syscall.Statfs(path, &stat); err != nil {
		return 0, 0, 0, err
	}

	totalBytes = int64(stat.Blocks) * int64(stat.Bsize)
	freeBytes = int64(stat.Bavail) * int64(stat.Bsize)

	if totalBytes > 0 {
		usedPercent = float64(totalBytes-freeBytes) / float64(totalBytes) * 100.0
	}

	return usedPercent, freeBytes, totalBytes, nil
}

// GetFreePercent returns the free space percentage for the filesystem
// holding path. Feeds the per-root free space gauge.
func GetFreePercent(path string) (float64, error) {
	usedPercent, _, _, err := GetDiskUsage(path)
	if err != nil {
		return 0, err
	}
	return 100.0 - usedPercent, nil
}

// IsNFSStale reports whether path sits on an unresponsive network mount:
// a stat that hangs past the timeout or fails with the classic NFS errno
// set (EIO, ESTALE, ENXIO). The stat goroutine is left behind on timeout.
func IsNFSStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return false
		}
		return os.IsTimeout(err) ||
			errors.Is(err, syscall.EIO) ||
			errors.Is(err, syscall.ESTALE) ||
			errors.Is(err, syscall.ENXIO)
	case <-time.After(timeout):
		return true
	}
}
