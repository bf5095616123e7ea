package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter 管理与监控接口：健康检查、指标、热更新、世界状态、渲染端 WebSocket
func NewRouter(g *Game) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", g.handleMetrics)
	r.GET("/admin/config", g.handleGetConfig)
	r.POST("/admin/config", g.handleUpdateConfig)
	r.POST("/admin/ping", g.handlePing)
	r.GET("/world", g.handleWorld)
	r.GET("/ws", g.handleWS)
	return r
}

// tuningBody 可热更新的配置项
type tuningBody struct {
	Friction     *float64 `json:"friction,omitempty"`
	EvictAfterMs *int64   `json:"evictAfterMs,omitempty"`
}

// GET /admin/config 返回当前配置
func (g *Game) handleGetConfig(c *gin.Context) {
	friction := g.Friction()
	evict := g.EvictAfter().Milliseconds()
	c.JSON(http.StatusOK, gin.H{
		"session":      g.Session(),
		"localId":      g.localID,
		"group":        g.group.String(),
		"local":        g.tr.LocalEndpoint().String(),
		"ttl":          g.cfg.TTL,
		"tickMs":       g.cfg.TickInterval.Milliseconds(),
		"tileLength":   g.cfg.TileLength,
		"queueCap":     g.outbound.Cap(),
		"registryCap":  g.players.Cap(),
		"friction":     friction,
		"evictAfterMs": evict,
	})
}

// POST /admin/config 以 JSON 载荷更新部分字段
func (g *Game) handleUpdateConfig(c *gin.Context) {
	var body tuningBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Friction != nil && (*body.Friction <= 0 || *body.Friction >= 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friction must be in (0,1)"})
		return
	}
	if body.EvictAfterMs != nil && *body.EvictAfterMs <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "evictAfterMs must be positive"})
		return
	}
	if body.Friction != nil {
		g.SetFriction(*body.Friction)
	}
	if body.EvictAfterMs != nil {
		g.SetEvictAfter(time.Duration(*body.EvictAfterMs) * time.Millisecond)
	}
	g.log.Infof("config updated: friction=%.3f evictAfter=%v", g.Friction(), g.EvictAfter())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /admin/ping 向组播组发送 Ping
func (g *Game) handlePing(c *gin.Context) {
	if err := g.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// GET /metrics 运行指标
func (g *Game) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session": g.Session(),
		"tick":    g.Ticks(),
		"players": g.players.Len(),
		"queued":  g.outbound.Len(),
		"metrics": g.metrics.Snapshot(),
	})
}

// GET /world 世界快照（JSON）
func (g *Game) handleWorld(c *gin.Context) {
	tiles, players := g.WorldSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"localId":    g.localID,
		"tileLength": g.cfg.TileLength,
		"map":        tiles.Lines(),
		"players":    players,
	})
}
