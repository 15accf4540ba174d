package sensor

import (
	"encoding/binary"
	"errors"
	"math"
)

var ErrUnsupported = errors.New("sensor: i2c not supported on this platform")

// BMI160 register map and scale factors (default ±2 g, ±2000 °/s).
const (
	DefaultI2CBus     = "/dev/i2c-1"
	DefaultBMI160Addr = 0x69

	bmiRegChipID = 0x00
	bmiRegData   = 0x0C // gyro x lsb, 12 bytes through accel z msb
	bmiRegCmd    = 0x7E

	bmiChipID       = 0xD1
	bmiCmdSoftReset = 0xB6
	bmiCmdAccNormal = 0x11
	bmiCmdGyrNormal = 0x15

	gyroLSBPerDPS = 16.4
	accelLSBPerG  = 16384.0
	standardG     = 9.80665
)

// decodeMotion converts the raw data block into SI units.
func decodeMotion(b []byte) [6]float64 {
	var out [6]float64
	for i := 0; i < 6; i++ {
		raw := float64(int16(binary.LittleEndian.Uint16(b[2*i:])))
		if i < 3 {
			out[i] = raw / gyroLSBPerDPS * math.Pi / 180
		} else {
			out[i] = raw / accelLSBPerG * standardG
		}
	}
	return out
}
