//go:build !linux

package sensor

// BMI160 is only available on Linux.
type BMI160 struct{}

func OpenBMI160(bus string, addr int) (*BMI160, error) { return nil, ErrUnsupported }

func (d *BMI160) Reinit() error                     { return ErrUnsupported }
func (d *BMI160) ReadInertial() ([6]float64, error) { return [6]float64{}, ErrUnsupported }
func (d *BMI160) Close() error                      { return nil }
