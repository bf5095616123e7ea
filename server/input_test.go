package server

import (
	"testing"
	"time"
)

func TestKeyDecoderPressRelease(t *testing.T) {
	d := NewKeyDecoder(40 * time.Millisecond)
	t0 := time.Unix(0, 0)

	if !d.Press(DirLeft, t0) {
		t.Fatalf("first press should be new")
	}
	if d.Press(DirLeft, t0.Add(10*time.Millisecond)) {
		t.Fatalf("press while held is a repeat")
	}
	d.Release(DirLeft, t0.Add(20*time.Millisecond))
	if got := d.State(DirLeft); got != KeyAwaitConfirm {
		t.Fatalf("state after release = %s", got)
	}
	if d.Held() != (Intent{DX: -1}) {
		t.Fatalf("key awaiting confirm should still count as held")
	}

	d.Expire(t0.Add(100 * time.Millisecond))
	if got := d.State(DirLeft); got != KeyIdle {
		t.Fatalf("state after expiry = %s", got)
	}
	if d.Held() != (Intent{}) {
		t.Fatalf("released key still held")
	}
}

func TestKeyDecoderAutoRepeatPair(t *testing.T) {
	d := NewKeyDecoder(40 * time.Millisecond)
	t0 := time.Unix(0, 0)
	d.Press(DirUp, t0)

	// 自动连发表现为相隔几毫秒的松开 + 按下
	d.Release(DirUp, t0.Add(30*time.Millisecond))
	if d.Press(DirUp, t0.Add(32*time.Millisecond)) {
		t.Fatalf("auto-repeat press reported as new")
	}
	if got := d.State(DirUp); got != KeyDown {
		t.Fatalf("state = %s, want down", got)
	}

	// 真正松开很久之后的按下是新的按下
	d.Release(DirUp, t0.Add(50*time.Millisecond))
	if !d.Press(DirUp, t0.Add(200*time.Millisecond)) {
		t.Fatalf("press after a confirmed gap should be new")
	}
}

func TestKeyDecoderCombinesHeldKeys(t *testing.T) {
	d := NewKeyDecoder(0)
	now := time.Now()
	d.Press(DirRight, now)
	d.Press(DirDown, now)
	if got := d.Held(); got != (Intent{DX: 1, DY: 1}) {
		t.Fatalf("held = %+v", got)
	}
	if d.Press(DirNone, now) {
		t.Fatalf("DirNone must be ignored")
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"up": DirUp, "ArrowDown": DirDown, "a": DirLeft, "right": DirRight, "space": DirNone,
	}
	for in, want := range cases {
		if got := ParseDirection(in); got != want {
			t.Errorf("ParseDirection(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestWireCoordClamps(t *testing.T) {
	if wireCoord(-5) != 0 || wireCoord(70000) != 0xFFFF || wireCoord(321) != 321 {
		t.Fatalf("wireCoord clamp broken")
	}
}
