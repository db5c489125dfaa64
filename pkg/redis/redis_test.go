package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/healthdash/backend/pkg/config"
)

func TestConnect_Disabled(t *testing.T) {
	client, err := Connect(context.Background(), config.RedisConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if _, err := client.Ping(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled from Ping, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var client *Client
	if client.Enabled() {
		t.Error("Expected nil client to be disabled")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	d, err := limiter.Allow(context.Background(), CDCRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !d.Allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if d.Remaining != CDCRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", CDCRateLimit.Limit, d.Remaining)
	}

	if err := limiter.Wait(context.Background(), WorldometersRateLimit); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result map[string]float64
	found, err := cache.Get(ctx, SummaryKey("RSV_Rate"), &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	calls := 0
	err = cache.GetOrSet(ctx, SummaryKey("RSV_Rate"), &result, TTLShort, func() (interface{}, error) {
		calls++
		return map[string]float64{"Ohio": 15}, nil
	})
	if err != nil {
		t.Fatalf("GetOrSet() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected loader to run once, ran %d times", calls)
	}
	if result["Ohio"] != 15 {
		t.Errorf("Expected Ohio=15, got %v", result["Ohio"])
	}

	if err := cache.Delete(ctx, SummaryKey("RSV_Rate")); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCache_Redis(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	client, err := Connect(context.Background(), config.RedisConfig{
		Host:    getenv("REDIS_HOST", "localhost"),
		Port:    getenv("REDIS_PORT", "6379"),
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	cache := NewCache(client, "healthdash-test")
	ctx := context.Background()
	key := SummaryKey("COVID_Positivity")
	defer cache.Delete(ctx, key)

	if err := cache.Set(ctx, key, map[string]float64{"Texas": 12.5}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got map[string]float64
	found, err := cache.Get(ctx, key, &got)
	if err != nil || !found {
		t.Fatalf("Get() found=%v err=%v", found, err)
	}
	if got["Texas"] != 12.5 {
		t.Errorf("Expected Texas=12.5, got %v", got["Texas"])
	}
}

func TestRateLimiter_Redis(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	client, err := Connect(context.Background(), config.RedisConfig{
		Host:    getenv("REDIS_HOST", "localhost"),
		Port:    getenv("REDIS_PORT", "6379"),
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	limiter := NewRateLimiter(client, fmt.Sprintf("healthdash-test-%d", time.Now().UnixNano()))
	cfg := RateLimitConfig{Key: "burst", Limit: 2, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, cfg)
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, d.Allowed, err)
		}
	}

	d, err := limiter.Allow(ctx, cfg)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if d.Allowed {
		t.Error("Expected third request in the window to be refused")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("Expected RetryAfter within the window, got %v", d.RetryAfter)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SummaryKey", SummaryKey("RSV_Rate"), "summary:RSV_Rate"},
		{"YearsKey", YearsKey("RSV_Rate"), "years:RSV_Rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
