package server

import (
	"context"
	"errors"
	"fmt"

	"lanarena/endpoint"
	"lanarena/monitor"
	"lanarena/protocol"
	"lanarena/registry"
	"lanarena/transport"
	"lanarena/world"
)

// runReceiver 持续接收直到 ctx 结束；socket 空闲时及每个数据报之后清理过期玩家
func (g *Game) runReceiver(ctx context.Context) error {
	buf := make([]byte, protocol.MaxDatagramSize+1)
	ready := make([]monitor.Pollable, 1)
	for ctx.Err() == nil {
		n, err := g.mon.Wait(ready, g.cfg.ReceiveTimeout)
		if err != nil {
			return err
		}
		if n == 0 {
			g.sweep()
			continue
		}
		if err := g.receiveOne(buf); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// receiveOne 最多读取并处理一个数据报
func (g *Game) receiveOne(buf []byte) error {
	n, src, err := g.tr.Receive(buf)
	switch {
	case errors.Is(err, transport.ErrWouldBlock):
		g.sweep()
		return nil
	case errors.Is(err, transport.ErrClosed):
		return fmt.Errorf("receiver: %w", err)
	case err != nil:
		g.log.Warnf("RECV failed: %v", err)
		return nil
	}
	g.handleDatagram(buf[:n], src)
	g.sweep()
	return nil
}

// handleDatagram 解码并应用一个数据报
func (g *Game) handleDatagram(b []byte, src endpoint.Endpoint) {
	g.metrics.IncIn()
	msg, err := protocol.Decode(b)
	if err != nil {
		g.metrics.IncMalformed()
		g.log.Debugf("RECV [%s] dropped %d bytes: %v", src, len(b), err)
		return
	}
	if msg.Origin == uint16(g.localID) {
		g.metrics.IncSelfSuppressed()
		return
	}
	g.log.Debugf("RECV [%s] %s from %d (%d bytes, ts %d)", src, msg.Kind(), msg.Origin, len(b), msg.TimestampMs)

	now := g.now()
	switch p := msg.Payload.(type) {
	case protocol.Position:
		g.onPosition(p, now)
	case protocol.Ping:
		if !g.outbound.TryEnqueue(g.envelope(protocol.Pong{}, src)) {
			g.metrics.IncPongsDropped()
			g.log.Debugf("pong to %s dropped, queue full", src)
		}
	case protocol.Pong:
		if msg.Origin <= 0xFF {
			g.players.Touch(uint8(msg.Origin), now)
		}
	default:
		// connect / ready / map / coin：本节点无需处理
	}
}

func (g *Game) onPosition(p protocol.Position, now int64) {
	pos := world.Vec2{X: int(p.X), Y: int(p.Y)}
	switch out := g.players.Upsert(p.PlayerID, pos, now); out {
	case registry.Inserted:
		g.metrics.IncInserted()
		g.log.Infof("player %d added at (%d,%d)", p.PlayerID, pos.X, pos.Y)
	case registry.Updated:
		g.metrics.IncUpdated()
	case registry.RejectedCapacity:
		g.metrics.IncRejected()
		g.log.Warnf("player %d ignored: %s", p.PlayerID, out)
	case registry.RejectedReserved:
		g.log.Debugf("player %d ignored: %s", p.PlayerID, out)
	}
}

// sweep 淘汰静默超过 EvictAfter 的远端玩家
func (g *Game) sweep() {
	evicted := g.players.EvictStaleSince(g.now(), g.EvictAfter().Milliseconds())
	if len(evicted) == 0 {
		return
	}
	g.metrics.AddEvicted(len(evicted))
	for _, id := range evicted {
		g.log.Infof("player %d evicted", id)
	}
}
