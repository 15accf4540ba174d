package sensor

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestUDPSource(t *testing.T) {
	src, err := ListenUDP("127.0.0.1:0")
	if err != nil {
		t.Skipf("udp unavailable: %v", err)
	}
	defer src.Close()

	if _, ok, err := src.Next(10 * time.Millisecond); ok || err != nil {
		t.Fatalf("idle Next = ok %v err %v, want timeout", ok, err)
	}

	conn, err := net.DialUDP("udp", nil, src.Addr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write(EncodeFrame(Frame{Bodies: []RigidBody{body(2, 1, 10, 20, 0.5)}})); err != nil {
		t.Fatal(err)
	}

	f, ok, err := src.Next(time.Second)
	if err != nil || !ok {
		t.Fatalf("Next = ok %v err %v", ok, err)
	}
	if len(f.Bodies) != 1 || f.Bodies[0].ID != 2 {
		t.Errorf("frame = %+v", f)
	}

	_ = src.Close()
	if _, _, err := src.Next(10 * time.Millisecond); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("Next after Close error = %v, want ErrSourceClosed", err)
	}
}
