//go:build !unix

package cmd

import "time"

// readCPUTime has no portable equivalent outside unix; bench falls
// back to wall-clock timing only on these platforms.
func readCPUTime() (time.Duration, bool) {
	return 0, false
}
