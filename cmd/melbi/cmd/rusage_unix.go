//go:build unix

package cmd

import (
	"time"

	"golang.org/x/sys/unix"
)

// readCPUTime reports this process's user+system CPU time via
// getrusage(RUSAGE_SELF), the same syscall go-dws's benchmarking
// helper samples around a run.
func readCPUTime() (time.Duration, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := time.Duration(ru.Utime.Sec)*time.Second + time.Duration(ru.Utime.Usec)*time.Microsecond
	sys := time.Duration(ru.Stime.Sec)*time.Second + time.Duration(ru.Stime.Usec)*time.Microsecond
	return user + sys, true
}
