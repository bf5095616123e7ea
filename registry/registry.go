// Package registry 记录网络上看到的远端玩家
//
// 每个操作全程持有一把互斥锁；容量只有几十到一两百，
// 一把粗粒度锁即可保证一致性
package registry

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"lanarena/world"
)

// ConnState 玩家连接进度
type ConnState uint8

const (
	Unconnected ConnState = iota
	Connecting
	Syncing
	Playing
)

func (s ConnState) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case Syncing:
		return "syncing"
	case Playing:
		return "playing"
	}
	return "unknown"
}

// Player 一个移动的圆
type Player struct {
	ID         uint8      `json:"id" msgpack:"id"`
	Position   world.Vec2 `json:"position" msgpack:"pos"`
	Velocity   world.Vec2 `json:"velocity" msgpack:"vel"`
	Radius     int        `json:"radius" msgpack:"r"`
	LastSeenMs int64      `json:"lastSeenMs" msgpack:"seen"`
	State      ConnState  `json:"state" msgpack:"state"`
	Hit        bool       `json:"hit,omitempty" msgpack:"hit,omitempty"`
}

// Outcome Upsert 的结果
type Outcome uint8

const (
	Inserted Outcome = iota
	Updated
	// RejectedCapacity 已满且 id 尚未记录
	RejectedCapacity
	// RejectedReserved id 属于本地玩家（或为 0）
	RejectedReserved
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case RejectedCapacity:
		return "rejected: capacity exceeded"
	case RejectedReserved:
		return "rejected: reserved id"
	}
	return "unknown"
}

// Registry 玩家 id -> 状态；玩家存于紧凑切片 + id 索引，淘汰时交换删除
type Registry struct {
	mu       deadlock.Mutex
	slots    []Player
	index    map[uint8]int
	capacity int
	localID  uint8
	radius   int
}

// New 最多记录 capacity 个远端玩家；localID 永不入表，新玩家使用给定半径
func New(capacity int, localID uint8, radius int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{
		slots:    make([]Player, 0, capacity),
		index:    make(map[uint8]int, capacity),
		capacity: capacity,
		localID:  localID,
		radius:   radius,
	}
}

// Cap 容量
func (r *Registry) Cap() int { return r.capacity }

// Len 已记录的玩家数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Upsert 记录 id 出现在 pos；已知 id 总能更新，表满时插入失败
func (r *Registry) Upsert(id uint8, pos world.Vec2, nowMs int64) Outcome {
	if id == 0 || id == r.localID {
		return RejectedReserved
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[id]; ok {
		p := &r.slots[i]
		p.Position = pos
		p.LastSeenMs = nowMs
		return Updated
	}
	if len(r.slots) >= r.capacity {
		return RejectedCapacity
	}
	r.index[id] = len(r.slots)
	r.slots = append(r.slots, Player{
		ID:         id,
		Position:   pos,
		Radius:     r.radius,
		LastSeenMs: nowMs,
		State:      Playing,
	})
	return Inserted
}

// Touch 刷新已知玩家的最后出现时间，返回 id 是否已知
func (r *Registry) Touch(id uint8, nowMs int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if ok {
		r.slots[i].LastSeenMs = nowMs
	}
	return ok
}

// Snapshot 按 id 排序的全部玩家副本
func (r *Registry) Snapshot() []Player {
	r.mu.Lock()
	out := make([]Player, len(r.slots))
	copy(out, r.slots)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EvictStaleSince 移除超过 thresholdMs 未出现的玩家并返回其 id
func (r *Registry) EvictStaleSince(nowMs, thresholdMs int64) []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []uint8
	for i := len(r.slots) - 1; i >= 0; i-- {
		p := r.slots[i]
		if nowMs-p.LastSeenMs <= thresholdMs {
			continue
		}
		evicted = append(evicted, p.ID)
		delete(r.index, p.ID)
		last := len(r.slots) - 1
		if i != last {
			r.slots[i] = r.slots[last]
			r.index[r.slots[i].ID] = i
		}
		r.slots = r.slots[:last]
	}
	return evicted
}
