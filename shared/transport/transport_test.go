package transport

import (
	"net"
	"testing"
	"time"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	a, err := Listen("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("listen a: %v", err)
	}
	defer a.Close()

	b, err := Listen("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("listen b: %v", err)
	}
	defer b.Close()

	dst := b.pc.LocalAddr()
	payload := []any{uint32(7), uint8(0)}
	if err := a.Send(dst, 0, 9000, payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case wm := <-b.Messages():
		if wm.ReplyPort != 9000 {
			t.Errorf("reply port = %d, want 9000", wm.ReplyPort)
		}
		if len(wm.Message) != 2 {
			t.Errorf("message length = %d, want 2", len(wm.Message))
		}
	case err := <-b.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMalformedDatagramDropped(t *testing.T) {
	a, err := Listen("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("listen a: %v", err)
	}
	defer a.Close()

	raw, err := net.Dial("udp", a.pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	if _, err := raw.Write([]byte("not gob data")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case wm := <-a.Messages():
		t.Fatalf("expected malformed datagram to be dropped, got %+v", wm)
	case err := <-a.Errors():
		t.Fatalf("expected malformed datagram to be dropped silently, got error: %v", err)
	case <-time.After(300 * time.Millisecond):
		// expected: nothing delivered
	}
}
