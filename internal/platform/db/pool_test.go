package db

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "host=localhost pool_max_conns=abc", 4, 1)
	if err == nil {
		t.Fatal("expected error for invalid connection string")
	}
	if !strings.Contains(err.Error(), "parse database url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewPool_Unreachable(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://ehr@127.0.0.1:1/ehr?connect_timeout=1", 2, 0)
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
	if !strings.Contains(err.Error(), "ping database") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheck_Unreachable(t *testing.T) {
	pool, err := pgxpool.New(context.Background(), "postgres://ehr@127.0.0.1:1/ehr?connect_timeout=1")
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()

	stats, err := Check(context.Background(), pool)
	if err == nil {
		t.Fatal("expected ping error")
	}
	if stats == nil || stats.Healthy {
		t.Errorf("expected unhealthy stats, got %+v", stats)
	}
}

func TestPoolStats_JSONTags(t *testing.T) {
	data, err := json.Marshal(PoolStats{TotalConns: 1, MaxConns: 10, AcquireDuration: "250ms", Healthy: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"total_conns":1`, `"max_conns":10`, `"acquire_duration":"250ms"`, `"healthy":true`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}
