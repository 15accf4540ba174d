//go:build !linux

package actuator

func requestRealtime(priority int) error {
	if priority <= 0 {
		return nil
	}
	return ErrRealtimeUnavailable
}
