//go:build linux

package sensor

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl request from linux/i2c-dev.h.
const i2cSlave = 0x0703

// BMI160 talks to a Bosch BMI160 over the Linux i2c-dev interface.
type BMI160 struct {
	mu   sync.Mutex
	bus  string
	addr int
	fd   int
}

// OpenBMI160 opens the bus, selects the device and powers up both sensors.
func OpenBMI160(bus string, addr int) (*BMI160, error) {
	d := &BMI160{bus: bus, addr: addr, fd: -1}
	if err := d.Reinit(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reinit reopens the bus and reconfigures the device.
func (d *BMI160) Reinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd >= 0 {
		_ = unix.Close(d.fd)
		d.fd = -1
	}
	fd, err := unix.Open(d.bus, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("sensor: open %s: %w", d.bus, err)
	}
	if err := unix.IoctlSetInt(fd, i2cSlave, d.addr); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("sensor: select 0x%02x: %w", d.addr, err)
	}
	d.fd = fd

	id, err := d.readReg(bmiRegChipID, 1)
	if err != nil {
		return err
	}
	if id[0] != bmiChipID {
		return fmt.Errorf("sensor: unexpected chip id 0x%02x at 0x%02x", id[0], d.addr)
	}

	steps := []struct {
		cmd  byte
		wait time.Duration
	}{
		{bmiCmdSoftReset, 100 * time.Millisecond},
		{bmiCmdAccNormal, 5 * time.Millisecond},
		{bmiCmdGyrNormal, 80 * time.Millisecond},
	}
	for _, s := range steps {
		if err := d.writeReg(bmiRegCmd, s.cmd); err != nil {
			return err
		}
		time.Sleep(s.wait)
	}
	return nil
}

func (d *BMI160) ReadInertial() ([6]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return [6]float64{}, fmt.Errorf("sensor: bmi160 at 0x%02x not open", d.addr)
	}
	b, err := d.readReg(bmiRegData, 12)
	if err != nil {
		return [6]float64{}, err
	}
	return decodeMotion(b), nil
}

func (d *BMI160) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func (d *BMI160) readReg(reg byte, n int) ([]byte, error) {
	if _, err := unix.Write(d.fd, []byte{reg}); err != nil {
		return nil, fmt.Errorf("sensor: select register 0x%02x: %w", reg, err)
	}
	buf := make([]byte, n)
	if _, err := unix.Read(d.fd, buf); err != nil {
		return nil, fmt.Errorf("sensor: read register 0x%02x: %w", reg, err)
	}
	return buf, nil
}

func (d *BMI160) writeReg(reg, val byte) error {
	if _, err := unix.Write(d.fd, []byte{reg, val}); err != nil {
		return fmt.Errorf("sensor: write register 0x%02x: %w", reg, err)
	}
	return nil
}
