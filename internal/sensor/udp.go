package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"time"
)

// DefaultUDPPort is where the tracker relay publishes frames.
const DefaultUDPPort = 53673

const (
	frameHeaderSize = 4
	bodyRecordSize  = 4 + 4 + 3*4 + 4*4
	maxDatagram     = 64 * 1024
)

// UDPSource receives tracker frames as datagrams.
//
// Layout, little endian: uint32 body count, then per body uint32 id,
// float32 cond, float32 x, y, z (mm), float32 q0, q1, q2, q3.
type UDPSource struct {
	conn *net.UDPConn
	buf  []byte
}

// ListenUDP binds addr, for example ":53673".
func ListenUDP(addr string) (*UDPSource, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("sensor: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("sensor: listen %q: %w", addr, err)
	}
	return &UDPSource{conn: conn, buf: make([]byte, maxDatagram)}, nil
}

// Addr returns the bound local address.
func (u *UDPSource) Addr() net.Addr { return u.conn.LocalAddr() }

func (u *UDPSource) Next(timeout time.Duration) (Frame, bool, error) {
	if err := u.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Frame{}, false, closedOr(err)
	}
	n, _, err := u.conn.ReadFromUDP(u.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Frame{}, false, nil
		}
		return Frame{}, false, closedOr(err)
	}
	f, err := DecodeFrame(u.buf[:n])
	if err != nil {
		return Frame{}, false, err
	}
	return f, true, nil
}

func (u *UDPSource) Close() error { return u.conn.Close() }

func closedOr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrSourceClosed
	}
	return err
}

// DecodeFrame parses one datagram.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < frameHeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	count := int(binary.LittleEndian.Uint32(b))
	want := frameHeaderSize + count*bodyRecordSize
	if len(b) < want {
		return Frame{}, fmt.Errorf("%w: %d bodies need %d bytes, have %d", ErrShortFrame, count, want, len(b))
	}

	f := Frame{Bodies: make([]RigidBody, count)}
	off := frameHeaderSize
	for i := range f.Bodies {
		rb := &f.Bodies[i]
		rb.ID = int(binary.LittleEndian.Uint32(b[off:]))
		rb.Cond = math.Float32frombits(binary.LittleEndian.Uint32(b[off+4:]))
		for k := range rb.Pose {
			bits := binary.LittleEndian.Uint32(b[off+8+4*k:])
			rb.Pose[k] = float64(math.Float32frombits(bits))
		}
		off += bodyRecordSize
	}
	return f, nil
}

// EncodeFrame is the inverse of DecodeFrame.
func EncodeFrame(f Frame) []byte {
	b := make([]byte, frameHeaderSize+len(f.Bodies)*bodyRecordSize)
	binary.LittleEndian.PutUint32(b, uint32(len(f.Bodies)))
	off := frameHeaderSize
	for _, rb := range f.Bodies {
		binary.LittleEndian.PutUint32(b[off:], uint32(rb.ID))
		binary.LittleEndian.PutUint32(b[off+4:], math.Float32bits(rb.Cond))
		for k, v := range rb.Pose {
			binary.LittleEndian.PutUint32(b[off+8+4*k:], math.Float32bits(float32(v)))
		}
		off += bodyRecordSize
	}
	return b
}
