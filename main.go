package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"lanarena/config"
	"lanarena/server"
)

// lanarena 入口：局域网组播竞技场的一个节点
// 配置优先级：默认值 < .env / LANARENA_* 环境变量 < 命令行参数
func main() {
	cfg, warnings := config.Load()

	flag.StringVar(&cfg.Host, "host", cfg.Host, "local bind address (empty binds all)")
	flag.StringVar(&cfg.Group, "group", cfg.Group, "multicast group address")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "multicast group port")
	flag.IntVar(&cfg.TTL, "ttl", cfg.TTL, "multicast TTL, clamped to 1-255")
	flag.IntVar(&cfg.LocalID, "id", cfg.LocalID, "local player id 1-255, 0 picks one at random")
	flag.StringVar(&cfg.MapFile, "map", cfg.MapFile, "tile map file, empty uses the built-in map")
	flag.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "admin HTTP listen address, empty disables it")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path, empty logs to stderr only")
	flag.StringVar(&cfg.LogLevel, "level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.Parse()

	// 使用 zap 日志，同时写 stderr 与滚动文件
	log, err := server.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		log.Warnf("config: %v", w)
	}

	// 优雅退出（Ctrl+C / SIGTERM）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	game, err := server.Open(ctx, cfg, log)
	if err != nil {
		stop()
		log.Fatalf("startup: %v", err)
	}

	err = serve(ctx, game, log)
	stop()
	if err != nil {
		log.Errorf("stopped: %v", err)
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Shutting down...")
	_ = log.Sync()
}

// serve 运行节点直到 ctx 结束或任一任务失败，退出前总会释放 socket
func serve(ctx context.Context, game *server.Game, log *zap.SugaredLogger) error {
	runErr := game.Run(ctx)
	if err := game.Close(); err != nil {
		log.Warnf("close: %v", err)
	}
	return runErr
}
