//go:build !windows

package preflight

import "golang.org/x/sys/unix"

// getFreeDiskSpace returns the free disk space in bytes for the given path on Unix systems
func getFreeDiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	// Use Bavail (available to non-root users) rather than Bfree (total free)
	return stat.Bavail * uint64(stat.Bsize), nil
}
