package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"lanarena/endpoint"
)

func bindLoopback(t *testing.T) *Transport {
	t.Helper()
	tr, err := Bind(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSendReceiveLoopback(t *testing.T) {
	a := bindLoopback(t)
	b := bindLoopback(t)
	b.SetReceiveTimeout(time.Second)

	if _, err := a.Send([]byte("hello"), b.LocalEndpoint()); err != nil {
		t.Fatalf("send: %v", err)
	}
	buf := make([]byte, 64)
	n, src, err := b.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("payload = %q", buf[:n])
	}
	if !endpoint.Equal(src, a.LocalEndpoint()) {
		t.Fatalf("source = %v, want %v", src, a.LocalEndpoint())
	}
}

func TestReceiveTimeoutIsWouldBlock(t *testing.T) {
	tr := bindLoopback(t)
	tr.SetReceiveTimeout(30 * time.Millisecond)
	start := time.Now()
	_, _, err := tr.Receive(make([]byte, 16))
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("receive waited far past its timeout")
	}
}

func TestBindUnavailableAddress(t *testing.T) {
	// 192.0.2.0/24 是文档保留地址，不可能是本机地址
	_, err := Bind(context.Background(), "192.0.2.1", 0)
	if !errors.Is(err, ErrBind) {
		t.Fatalf("expected ErrBind, got %v", err)
	}
}

func TestJoinGroupRejectsUnicast(t *testing.T) {
	tr := bindLoopback(t)
	ep, _ := endpoint.Parse("127.0.0.1")
	if err := tr.JoinGroup(ep.WithPort(7000)); err == nil {
		t.Fatalf("expected error joining a unicast address")
	}
}

func TestReceiveAfterClose(t *testing.T) {
	tr, err := Bind(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := tr.Receive(make([]byte, 8)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSetTimeToLiveClamps(t *testing.T) {
	tr := bindLoopback(t)
	for _, n := range []int{-3, 10, 1000} {
		if err := tr.SetTimeToLive(n); err != nil {
			t.Fatalf("SetTimeToLive(%d): %v", n, err)
		}
	}
	ttl, err := tr.pc.MulticastTTL()
	if err != nil {
		t.Fatalf("read ttl: %v", err)
	}
	if ttl != MaxTTL {
		t.Fatalf("ttl = %d, want %d", ttl, MaxTTL)
	}
}
