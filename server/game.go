package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lanarena/config"
	"lanarena/endpoint"
	"lanarena/monitor"
	"lanarena/protocol"
	"lanarena/queue"
	"lanarena/registry"
	"lanarena/transport"
	"lanarena/world"
)

// intentBuffer 渲染端到 Tick 之间待处理移动意图的缓冲
const intentBuffer = 256

// Deps 构造 Game 所需的依赖；Open 根据 Config 组装，测试直接传入
type Deps struct {
	Transport *transport.Transport
	Tiles     *world.TileMap
	Group     endpoint.Endpoint
	LocalID   uint8
}

// Game 一个节点：本地玩家、远端玩家表，以及在它们与网络之间搬运数据报的任务
type Game struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	metrics *Metrics
	session uuid.UUID

	localID uint8
	group   endpoint.Endpoint
	tiles   *world.TileMap
	spawn   world.Vec2
	radius  int

	tr       *transport.Transport
	mon      *monitor.Monitor
	players  *registry.Registry
	outbound *queue.Queue[protocol.Envelope]
	intents  chan Intent

	start time.Time
	now   func() int64

	// local 只由模拟任务写；published 是给读者的副本
	local     registry.Player
	mu        sync.RWMutex
	published registry.Player
	ticks     atomic.Uint64

	frictionBits atomic.Uint64
	evictAfterMs atomic.Int64

	stopped   chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Open 绑定 socket、加入组播组并构造 Game；任何失败都是致命的
func Open(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	group, err := cfg.GroupEndpoint()
	if err != nil {
		return nil, err
	}

	tiles := world.DefaultTileMap()
	if cfg.MapFile != "" {
		if tiles, err = world.LoadTileMap(cfg.MapFile); err != nil {
			return nil, err
		}
	}

	localID := uint8(cfg.LocalID)
	if localID == 0 {
		localID = uint8(rand.IntN(255) + 1)
	}

	tr, err := transport.Bind(ctx, cfg.Host, uint16(cfg.Port))
	if err != nil {
		return nil, err
	}
	setup := multierr.Combine(
		tr.SetTimeToLive(cfg.TTL),
		tr.SetLoopback(true),
		tr.JoinGroup(group),
	)
	if setup != nil {
		return nil, multierr.Append(fmt.Errorf("join %s: %w", group, setup), tr.Close())
	}
	tr.SetReceiveTimeout(cfg.ReceiveTimeout)

	g, err := New(cfg, log, Deps{Transport: tr, Tiles: tiles, Group: group, LocalID: localID})
	if err != nil {
		return nil, multierr.Append(err, tr.Close())
	}
	return g, nil
}

// New 使用已配置好的依赖构造 Game
func New(cfg config.Config, log *zap.SugaredLogger, deps Deps) (*Game, error) {
	if deps.Transport == nil {
		return nil, errors.New("server: nil transport")
	}
	if deps.LocalID == 0 {
		return nil, errors.New("server: local id 0 is reserved")
	}
	if deps.Tiles == nil {
		deps.Tiles = world.DefaultTileMap()
	}
	mon := monitor.New(monitor.DefaultCapacity)
	if err := mon.Add(deps.Transport, monitor.Read); err != nil {
		return nil, err
	}

	radius := cfg.TileLength / 4
	g := &Game{
		cfg:      cfg,
		log:      log,
		metrics:  &Metrics{},
		session:  uuid.New(),
		localID:  deps.LocalID,
		group:    deps.Group,
		tiles:    deps.Tiles,
		spawn:    deps.Tiles.Spawn(cfg.TileLength),
		radius:   radius,
		tr:       deps.Transport,
		mon:      mon,
		players:  registry.New(cfg.RegistryCapacity, deps.LocalID, radius),
		outbound: queue.New[protocol.Envelope](cfg.QueueCapacity),
		intents:  make(chan Intent, intentBuffer),
		start:    time.Now(),
		stopped:  make(chan struct{}),
	}
	g.now = func() int64 { return time.Since(g.start).Milliseconds() }
	g.SetFriction(cfg.Friction)
	g.SetEvictAfter(cfg.EvictAfter)

	g.local = registry.Player{
		ID:       g.localID,
		Position: g.spawn,
		Radius:   radius,
		State:    registry.Playing,
	}
	g.published = g.local
	return g, nil
}

// LocalID 本节点发出数据报时使用的 id
func (g *Game) LocalID() uint8 { return g.localID }

// Session 本次进程运行的标识（日志与管理接口）
func (g *Game) Session() string { return g.session.String() }

func (g *Game) Metrics() *Metrics { return g.metrics }

// Run 启动模拟、接收、发送三个任务（以及配置了的管理 HTTP 服务），
// 阻塞直到 ctx 结束或任一任务失败
func (g *Game) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	// 关闭队列：让发送任务与阻塞中的生产者退出
	eg.Go(func() error {
		<-ctx.Done()
		g.stop()
		g.outbound.Close()
		return nil
	})
	eg.Go(func() error { return g.runSimulation(ctx) })
	eg.Go(func() error { return g.runReceiver(ctx) })
	eg.Go(g.runSender)

	if g.cfg.AdminAddr != "" {
		srv := &http.Server{
			Addr:              g.cfg.AdminAddr,
			Handler:           NewRouter(g),
			ReadHeaderTimeout: 5 * time.Second,
		}
		eg.Go(func() error {
			g.log.Infof("admin listening on %s", g.cfg.AdminAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.log.Infow("peer running",
		"session", g.Session(),
		"id", g.localID,
		"group", g.group.String(),
		"local", g.tr.LocalEndpoint().String(),
	)
	return eg.Wait()
}

// Close 释放 socket 并唤醒阻塞在队列上的协程；monitor 归接收任务，不在此处理
func (g *Game) Close() error {
	g.closeOnce.Do(func() {
		g.stop()
		g.outbound.Close()
		g.closeErr = g.tr.Close()
	})
	return g.closeErr
}

// Done 在 Run 被取消或调用 Close 后关闭
func (g *Game) Done() <-chan struct{} { return g.stopped }

func (g *Game) stop() {
	g.stopOnce.Do(func() { close(g.stopped) })
}

// WorldSnapshot 地图 + 全部玩家（含本地），按 id 排序
func (g *Game) WorldSnapshot() (*world.TileMap, []registry.Player) {
	remote := g.players.Snapshot()
	g.mu.RLock()
	local := g.published
	g.mu.RUnlock()

	out := make([]registry.Player, 0, len(remote)+1)
	inserted := false
	for _, p := range remote {
		if !inserted && local.ID < p.ID {
			out = append(out, local)
			inserted = true
		}
		out = append(out, p)
	}
	if !inserted {
		out = append(out, local)
	}
	return g.tiles, out
}

// LocalPlayer 上一次 Tick 后的本地玩家
func (g *Game) LocalPlayer() registry.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.published
}

// Ticks 已完成的模拟步数
func (g *Game) Ticks() uint64 { return g.ticks.Load() }

// SubmitMoveIntent 记录移动意图，下一次 Tick 处理；不阻塞，缓冲满时丢弃并返回 false
func (g *Game) SubmitMoveIntent(dx, dy int) bool {
	select {
	case g.intents <- Intent{DX: dx, DY: dy}:
		return true
	default:
		g.metrics.IncIntentsDropped()
		return false
	}
}

// Ping 请求组内所有节点回复 Pong
func (g *Game) Ping() error {
	return g.outbound.Enqueue(g.envelope(protocol.Ping{}, g.group))
}

func (g *Game) envelope(p protocol.Payload, dest endpoint.Endpoint) protocol.Envelope {
	return protocol.Envelope{
		Message: protocol.Message{
			Origin:      uint16(g.localID),
			TimestampMs: int32(g.now()),
			Payload:     p,
		},
		Destination: dest,
	}
}

// Friction 每 Tick 的速度衰减系数
func (g *Game) Friction() float64 {
	return math.Float64frombits(g.frictionBits.Load())
}

func (g *Game) SetFriction(f float64) {
	g.frictionBits.Store(math.Float64bits(f))
}

// EvictAfter 远端玩家静默多久后被淘汰
func (g *Game) EvictAfter() time.Duration {
	return time.Duration(g.evictAfterMs.Load()) * time.Millisecond
}

func (g *Game) SetEvictAfter(d time.Duration) {
	g.evictAfterMs.Store(d.Milliseconds())
}
