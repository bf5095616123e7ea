package server

import (
	"errors"

	"lanarena/protocol"
	"lanarena/queue"
)

// runSender 把发送队列写到 socket，直到队列关闭且取空；发送失败只记日志，不重试
func (g *Game) runSender() error {
	for {
		env, err := g.outbound.Dequeue()
		if errors.Is(err, queue.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		g.send(env)
	}
}

func (g *Game) send(env protocol.Envelope) {
	b, err := protocol.Encode(env.Message)
	if err != nil {
		g.metrics.IncSendErrors()
		g.log.Warnf("SEND [%s] encode %s: %v", env.Destination, env.Message.Kind(), err)
		return
	}
	n, err := g.tr.Send(b, env.Destination)
	if err != nil {
		g.metrics.IncSendErrors()
		g.log.Warnf("SEND [%s] %s failed: %v", env.Destination, env.Message.Kind(), err)
		return
	}
	g.metrics.IncOut()
	g.log.Debugf("SEND [%s] %s %d bytes", env.Destination, env.Message.Kind(), n)
}
