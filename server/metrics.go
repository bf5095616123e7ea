package server

import (
	"sync/atomic"
)

// Metrics 三个任务的运行指标（原子计数）
type Metrics struct {
	DatagramsIn    int64
	DatagramsOut   int64
	Malformed      int64 // 过短 / 过长 / 未知 kind，已丢弃
	SelfSuppressed int64 // 自己发出的组播回环
	SendErrors     int64
	Inserted       int64
	Updated        int64
	Rejected       int64 // 玩家表已满
	Evicted        int64
	PongsDropped   int64 // 回复 Ping 时队列已满
	IntentsDropped int64
	Collisions     int64
	TickCount      int64
	TotalTickNs    int64
}

func (m *Metrics) IncIn()             { atomic.AddInt64(&m.DatagramsIn, 1) }
func (m *Metrics) IncOut()            { atomic.AddInt64(&m.DatagramsOut, 1) }
func (m *Metrics) IncMalformed()      { atomic.AddInt64(&m.Malformed, 1) }
func (m *Metrics) IncSelfSuppressed() { atomic.AddInt64(&m.SelfSuppressed, 1) }
func (m *Metrics) IncSendErrors()     { atomic.AddInt64(&m.SendErrors, 1) }
func (m *Metrics) IncInserted()       { atomic.AddInt64(&m.Inserted, 1) }
func (m *Metrics) IncUpdated()        { atomic.AddInt64(&m.Updated, 1) }
func (m *Metrics) IncRejected()       { atomic.AddInt64(&m.Rejected, 1) }
func (m *Metrics) AddEvicted(n int)   { atomic.AddInt64(&m.Evicted, int64(n)) }
func (m *Metrics) IncPongsDropped()   { atomic.AddInt64(&m.PongsDropped, 1) }
func (m *Metrics) IncIntentsDropped() { atomic.AddInt64(&m.IntentsDropped, 1) }
func (m *Metrics) IncCollisions()     { atomic.AddInt64(&m.Collisions, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本供 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"datagrams_in":    atomic.LoadInt64(&m.DatagramsIn),
		"datagrams_out":   atomic.LoadInt64(&m.DatagramsOut),
		"malformed":       atomic.LoadInt64(&m.Malformed),
		"self_suppressed": atomic.LoadInt64(&m.SelfSuppressed),
		"send_errors":     atomic.LoadInt64(&m.SendErrors),
		"inserted":        atomic.LoadInt64(&m.Inserted),
		"updated":         atomic.LoadInt64(&m.Updated),
		"rejected":        atomic.LoadInt64(&m.Rejected),
		"evicted":         atomic.LoadInt64(&m.Evicted),
		"pongs_dropped":   atomic.LoadInt64(&m.PongsDropped),
		"intents_dropped": atomic.LoadInt64(&m.IntentsDropped),
		"collisions":      atomic.LoadInt64(&m.Collisions),
		"tick_count":      tick,
		"avg_tick_ms":     avgMs,
	}
}
