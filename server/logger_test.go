package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.log")
	log, err := NewLogger(path, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Infof("player %d added", 5)
	_ = log.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "INFO") || !strings.Contains(string(b), "player 5 added") {
		t.Fatalf("log file = %q", b)
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger("", "chatty"); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}
