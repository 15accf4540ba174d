// Package gpio abstracts the digital output lines that drive thruster valves.
package gpio

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPin = errors.New("gpio: pin not configured")
	ErrClosed     = errors.New("gpio: device closed")
)

// Level is a digital output level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Writer drives digital output lines.
type Writer interface {
	WriteDigital(pin int, level Level) error
}

// DefaultPins are the physical header pins wired to thrusters 1..8.
var DefaultPins = [8]int{7, 12, 13, 15, 16, 18, 22, 23}

// boardToBCM maps 40-pin header positions to Broadcom GPIO numbers.
var boardToBCM = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15, 11: 17, 12: 18, 13: 27, 15: 22, 16: 23,
	18: 24, 19: 10, 21: 9, 22: 25, 23: 11, 24: 8, 26: 7, 29: 5, 31: 6, 32: 12,
	33: 13, 35: 19, 36: 16, 37: 26, 38: 20, 40: 21,
}

// BCM returns the Broadcom number for a header pin.
func BCM(board int) (int, error) {
	bcm, ok := boardToBCM[board]
	if !ok {
		return 0, fmt.Errorf("%w: header pin %d is not a GPIO", ErrUnknownPin, board)
	}
	return bcm, nil
}
