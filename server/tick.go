package server

import (
	"context"
	"errors"
	"time"

	"lanarena/protocol"
	"lanarena/queue"
	"lanarena/world"
)

// runSimulation 每个 Tick 推进一次本地玩家，直到 ctx 结束
func (g *Game) runSimulation(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		// 核心循环：处理意图 → 积分 → 碰撞 → 发布
		start := time.Now()
		err := g.Step()
		g.metrics.AddTick(time.Since(start).Nanoseconds())
		if errors.Is(err, queue.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Step 推进本地玩家一个 Tick，并把位置放入发往组播组的队列；队满时阻塞
func (g *Game) Step() error {
	p := g.local
	g.drainIntents(func(in Intent) { applyIntent(&p, in) })
	integrate(&p, g.Friction())

	p.Hit = false
	if tile, hit := world.FirstOverlap(g.tiles, g.cfg.TileLength, p.Position, p.Radius); hit {
		g.metrics.IncCollisions()
		g.log.Debugf("player %d hit tile (%d,%d)-(%d,%d) at (%d,%d), respawning",
			p.ID, tile.X0, tile.Y0, tile.X1, tile.Y1, p.Position.X, p.Position.Y)
		respawn(&p, g.spawn, g.radius)
	}
	p.LastSeenMs = g.now()

	g.local = p
	g.mu.Lock()
	g.published = p
	g.mu.Unlock()
	g.ticks.Add(1)

	pos := protocol.Position{
		PlayerID: g.localID,
		X:        wireCoord(p.Position.X),
		Y:        wireCoord(p.Position.Y),
	}
	return g.outbound.Enqueue(g.envelope(pos, g.group))
}

// drainIntents 非阻塞地把所有待处理意图交给 fn
func (g *Game) drainIntents(fn func(Intent)) {
	for {
		select {
		case in := <-g.intents:
			fn(in)
		default:
			return
		}
	}
}
