package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"lanarena/registry"
)

const (
	// feedInterval 渲染端收到世界帧的间隔
	feedInterval = 50 * time.Millisecond
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Frame 推给渲染端的世界快照（msgpack 编码）；Map 只在连接的第一帧携带
type Frame struct {
	Type    string            `msgpack:"type"`
	Session string            `msgpack:"session"`
	LocalID uint8             `msgpack:"local"`
	Tick    uint64            `msgpack:"tick"`
	Tile    int               `msgpack:"tile"`
	Players []registry.Player `msgpack:"players"`
	Map     []string          `msgpack:"map,omitempty"`
}

// Frame 为渲染端截取当前世界
func (g *Game) Frame(withMap bool) Frame {
	tiles, players := g.WorldSnapshot()
	f := Frame{
		Type:    "state",
		Session: g.Session(),
		LocalID: g.localID,
		Tick:    g.Ticks(),
		Tile:    g.cfg.TileLength,
		Players: players,
	}
	if withMap {
		f.Map = tiles.Lines()
	}
	return f
}

// ClientConn 一个渲染端连接：帧压入 send 队列，由 writePump 写出
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// Enqueue 非阻塞入队，满则丢弃（慢的渲染端丢帧）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 任意协程可调用，可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *ClientConn) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取渲染端输入，转换为移动意图
func (c *ClientConn) readPump(g *Game, keys *KeyDecoder) {
	defer c.Close()
	c.ws.SetReadLimit(4 << 10)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debugf("renderer read: %v", err)
			}
			return
		}
		var im InputMessage
		if err := json.Unmarshal(payload, &im); err != nil {
			continue
		}
		now := time.Now()
		switch strings.ToLower(im.Type) {
		case "key":
			dir := ParseDirection(im.Key)
			if !im.Down {
				keys.Release(dir, now)
				continue
			}
			if keys.Press(dir, now) {
				dx, dy := dir.Vector()
				g.SubmitMoveIntent(dx, dy)
			}
		case "move":
			g.SubmitMoveIntent(im.DX, im.DY)
		}
	}
}

// feed 每 feedInterval 推送一帧，并把按住的键转为意图；游戏停止时关闭连接
func (c *ClientConn) feed(g *Game, keys *KeyDecoder) {
	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()
	first := true
	for {
		b, err := msgpack.Marshal(g.Frame(first))
		if err != nil {
			g.log.Errorf("encode frame: %v", err)
			c.Close()
			return
		}
		if c.Enqueue(b) {
			first = false
		}

		select {
		case <-c.done:
			return
		case <-g.Done():
			c.Close()
			return
		case now := <-ticker.C:
			keys.Expire(now)
			if held := keys.Held(); held != (Intent{}) {
				g.SubmitMoveIntent(held.DX, held.DY)
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 渲染端为本地工具：允许所有来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS 渲染端接入：GET /ws
func (g *Game) handleWS(c *gin.Context) {
	select {
	case <-g.Done():
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	default:
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warnf("upgrade error: %v", err)
		return
	}
	g.log.Infof("renderer attached from %s", c.ClientIP())

	client := NewClientConn(ws)
	keys := NewKeyDecoder(DefaultRepeatWindow)
	go client.writePump()
	go client.readPump(g, keys)
	go client.feed(g, keys)
}
