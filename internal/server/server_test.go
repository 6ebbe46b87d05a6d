package server

import (
	"context"
	"strings"
	"testing"

	"github.com/qworpa/qworpa/internal/config"
	"github.com/qworpa/qworpa/internal/queue"
)

func TestRun_InvalidMode(t *testing.T) {
	err := Run(context.Background(), Config{Mode: "sideways"})
	if err == nil || !strings.Contains(err.Error(), "invalid mode") {
		t.Fatalf("expected invalid mode error, got %v", err)
	}
}

func TestCreateQueue(t *testing.T) {
	cfg := &config.Config{Queue: config.QueueConfig{Type: "memory"}}
	q, err := createQueue(cfg, nil)
	if err != nil {
		t.Fatalf("memory queue: %v", err)
	}
	defer q.Close()
	if _, ok := q.(*queue.MemoryQueue); !ok {
		t.Errorf("expected *queue.MemoryQueue, got %T", q)
	}

	cfg.Queue = config.QueueConfig{Type: "valkey"}
	if _, err := createQueue(cfg, nil); err == nil {
		t.Error("expected error for valkey without address")
	}

	cfg.Queue = config.QueueConfig{Type: "kafka"}
	if _, err := createQueue(cfg, nil); err == nil {
		t.Error("expected error for unsupported queue type")
	}
}
