package server

import (
	"sync"
	"time"
)

// Intent 一次移动意图，在下一次 Tick 中消费
type Intent struct {
	DX, DY int
}

// InputMessage 渲染端经 WebSocket 发来的输入（文本 JSON）
// 示例：{"type":"key","key":"left","down":true}
// 显式意图：{"type":"move","dx":1,"dy":0}
type InputMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	Down bool   `json:"down,omitempty"`
	DX   int    `json:"dx,omitempty"`
	DY   int    `json:"dy,omitempty"`
}

// KeyState 单个按键在解码器中的状态
type KeyState uint8

const (
	KeyIdle KeyState = iota
	KeyDown
	// KeyAwaitConfirm 松开后等待确认；窗口内再次按下说明是自动连发，按键从未抬起
	KeyAwaitConfirm
)

func (s KeyState) String() string {
	switch s {
	case KeyIdle:
		return "idle"
	case KeyDown:
		return "down"
	case KeyAwaitConfirm:
		return "await-confirm"
	}
	return "unknown"
}

// DefaultRepeatWindow 松开后等待配对按下的时长
const DefaultRepeatWindow = 40 * time.Millisecond

type keyTrack struct {
	state      KeyState
	releasedAt time.Time
}

// KeyDecoder 把原始按下 / 松开事件（含自动连发）整理成稳定的按住集合；并发安全
type KeyDecoder struct {
	mu     sync.Mutex
	window time.Duration
	keys   map[Direction]*keyTrack
}

// NewKeyDecoder 用 window 区分自动连发与真正松开；非正数使用 DefaultRepeatWindow
func NewKeyDecoder(window time.Duration) *KeyDecoder {
	if window <= 0 {
		window = DefaultRepeatWindow
	}
	return &KeyDecoder{window: window, keys: make(map[Direction]*keyTrack)}
}

func (d *KeyDecoder) track(dir Direction) *keyTrack {
	k, ok := d.keys[dir]
	if !ok {
		k = &keyTrack{}
		d.keys[dir] = k
	}
	return k
}

// Press 记录按下，返回是否为新的按下（而非已按住键的重复）
func (d *KeyDecoder) Press(dir Direction, now time.Time) bool {
	if dir == DirNone {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := d.track(dir)
	switch k.state {
	case KeyIdle:
		k.state = KeyDown
		return true
	case KeyAwaitConfirm:
		if now.Sub(k.releasedAt) <= d.window {
			k.state = KeyDown
			return false
		}
		k.state = KeyDown
		return true
	}
	return false
}

// Release 记录松开；在 Expire 确认前仍视为按住
func (d *KeyDecoder) Release(dir Direction, now time.Time) {
	if dir == DirNone {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := d.track(dir)
	if k.state == KeyDown {
		k.state = KeyAwaitConfirm
		k.releasedAt = now
	}
}

// Expire 确认超过窗口的松开
func (d *KeyDecoder) Expire(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range d.keys {
		if k.state == KeyAwaitConfirm && now.Sub(k.releasedAt) > d.window {
			k.state = KeyIdle
		}
	}
}

// State 单个按键的状态
func (d *KeyDecoder) State(dir Direction) KeyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.keys[dir]; ok {
		return k.state
	}
	return KeyIdle
}

// Held 所有未确认松开按键的单位向量之和
func (d *KeyDecoder) Held() Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var in Intent
	for dir, k := range d.keys {
		if k.state == KeyIdle {
			continue
		}
		dx, dy := dir.Vector()
		in.DX += dx
		in.DY += dy
	}
	return in
}
