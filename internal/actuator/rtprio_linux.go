//go:build linux

package actuator

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// requestRealtime moves the calling thread to SCHED_FIFO at priority.
// The caller must hold its OS thread.
func requestRealtime(priority int) error {
	if priority <= 0 {
		return nil
	}
	attr := &unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, attr, 0); err != nil {
		return fmt.Errorf("%w: sched_setattr: %v", ErrRealtimeUnavailable, err)
	}
	return nil
}
