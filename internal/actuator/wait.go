package actuator

import "time"

// spinWindow is the residual that is busy-waited instead of slept.
const spinWindow = time.Millisecond

// waitUntil blocks until deadline. It sleeps while more than spin remains and
// busy-waits the rest. It returns false as soon as quit is closed.
func waitUntil(deadline time.Time, spin time.Duration, quit <-chan struct{}) bool {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			select {
			case <-quit:
				return false
			default:
				return true
			}
		}
		if remaining > spin {
			t := time.NewTimer(remaining - spin)
			select {
			case <-quit:
				t.Stop()
				return false
			case <-t.C:
			}
			continue
		}
		for time.Now().Before(deadline) {
			select {
			case <-quit:
				return false
			default:
			}
		}
	}
}
