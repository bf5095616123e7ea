package main

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"lanarena/config"
	"lanarena/server"
	"lanarena/transport"
)

func TestServeReturnsAdminFailure(t *testing.T) {
	// 先占用端口，让管理接口启动失败
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := config.Default()
	cfg.AdminAddr = busy.Addr().String()
	cfg.LogFile = ""

	tr, err := transport.Bind(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	game, err := server.New(cfg, zaptest.NewLogger(t).Sugar(), server.Deps{
		Transport: tr,
		Group:     tr.LocalEndpoint(),
		LocalID:   3,
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), game, zaptest.NewLogger(t).Sugar()) }()
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "admin server") {
			t.Fatalf("serve = %v, want admin server error", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not return after the admin server failed")
	}

	select {
	case <-game.Done():
	default:
		t.Fatalf("game not stopped after serve returned")
	}
}
