package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limiterRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByIP())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiter_BurstThen429Envelope(t *testing.T) {
	r := limiterRouter(0.0001, 2) // effectively no refill during the test

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)

		if w.Code == http.StatusTooManyRequests {
			if w.Header().Get("Retry-After") == "" {
				t.Fatalf("429 must carry Retry-After")
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid 429 body: %v", err)
			}
			if body["status"] != "error" || body["code"] != float64(429) {
				t.Fatalf("unexpected 429 envelope: %v", body)
			}
		}
	}
	if statuses[0] != 200 || statuses[1] != 200 || statuses[2] != 429 {
		t.Fatalf("statuses = %v, want [200 200 429]", statuses)
	}
}

func TestRateLimiter_SeparateBucketsPerIP(t *testing.T) {
	r := limiterRouter(0.0001, 1)

	do := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := do("203.0.113.7:1"); got != 200 {
		t.Fatalf("first client first call -> %d", got)
	}
	if got := do("203.0.113.7:1"); got != 429 {
		t.Fatalf("first client second call -> %d, want 429", got)
	}
	// A different IP owns a fresh bucket.
	if got := do("198.51.100.9:1"); got != 200 {
		t.Fatalf("second client first call -> %d", got)
	}
}

func TestRateLimiter_BurstCoercedToOne(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByIP())
	if rl.burst != 1 {
		t.Fatalf("burst <= 0 must coerce to 1, got %d", rl.burst)
	}
}

func TestRateLimiter_IdleEviction(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:old")
	time.Sleep(5 * time.Millisecond)

	// Force the opportunistic GC threshold.
	rl.mu.Lock()
	rl.cleanupN = 4999
	rl.mu.Unlock()
	rl.getVisitor("ip:new")

	rl.mu.Lock()
	_, oldAlive := rl.visitors["ip:old"]
	_, newAlive := rl.visitors["ip:new"]
	rl.mu.Unlock()

	if oldAlive {
		t.Fatalf("idle bucket survived GC")
	}
	if !newAlive {
		t.Fatalf("fresh bucket evicted")
	}
}
