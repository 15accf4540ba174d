package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIO drives Raspberry Pi header pins through /dev/gpiomem.
type RPIO struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
	open bool
}

// OpenRPIO maps the GPIO registers and configures every pin as a low output.
func OpenRPIO(boardPins []int) (*RPIO, error) {
	pins := make(map[int]rpio.Pin, len(boardPins))
	for _, b := range boardPins {
		bcm, err := BCM(b)
		if err != nil {
			return nil, err
		}
		pins[b] = rpio.Pin(bcm)
	}

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: open: %w", err)
	}
	for _, p := range pins {
		p.Output()
		p.Low()
	}
	return &RPIO{pins: pins, open: true}, nil
}

func (r *RPIO) WriteDigital(pin int, level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrClosed
	}
	p, ok := r.pins[pin]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// Close drives every line low and unmaps the registers.
func (r *RPIO) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	for _, p := range r.pins {
		p.Low()
	}
	r.open = false
	return rpio.Close()
}
