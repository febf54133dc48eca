package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// loginEngine mounts the limiter in front of a stub login handler, mirroring
// how the router guards /api/v1/auth/login.
func loginEngine(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/auth/login", RateLimit(rl), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 200, "message": "Login successful"})
	})
	return r
}

func attemptLogin(r *gin.Engine, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	body := strings.NewReader(`{"username":"alice","password":"wrong"}`)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_FixedWindowCounting(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	// 窗口内前 3 次放行, 第 4 次拒绝
	for i := 0; i < 3; i++ {
		if !rl.Allow("203.0.113.7") {
			t.Fatalf("attempt %d within the limit was denied", i+1)
		}
	}
	if rl.Allow("203.0.113.7") {
		t.Error("attempt past the limit was allowed")
	}

	// 其他来源 IP 不受影响
	if !rl.Allow("203.0.113.8") {
		t.Error("a different client was throttled by another client's attempts")
	}
}

func TestRateLimiter_WindowExpiryResets(t *testing.T) {
	rl := NewRateLimiter(1, 40*time.Millisecond)

	rl.Allow("203.0.113.7")
	if rl.Allow("203.0.113.7") {
		t.Fatal("second attempt inside the window was allowed")
	}

	time.Sleep(50 * time.Millisecond)
	if !rl.Allow("203.0.113.7") {
		t.Error("attempt after the window elapsed was denied")
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if got := rl.RetryAfter("203.0.113.7"); got != 0 {
		t.Errorf("RetryAfter for an unseen client = %v, want 0", got)
	}

	rl.Allow("203.0.113.7")
	if got := rl.RetryAfter("203.0.113.7"); got != 0 {
		t.Errorf("RetryAfter while still under the limit = %v, want 0", got)
	}

	rl.Allow("203.0.113.7")
	got := rl.RetryAfter("203.0.113.7")
	if got <= 0 || got > time.Minute {
		t.Errorf("RetryAfter while blocked = %v, want within (0, 1m]", got)
	}
}

func TestRateLimiter_CleanupDropsExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(1, 40*time.Millisecond)

	rl.Allow("203.0.113.7")
	rl.Allow("203.0.113.8")
	time.Sleep(50 * time.Millisecond)

	rl.Cleanup()
	if n := len(rl.entries); n != 0 {
		t.Errorf("entries after cleanup = %d, want 0", n)
	}
	if !rl.Allow("203.0.113.7") {
		t.Error("attempt after cleanup was denied")
	}
}

func TestRateLimit_LoginRouteThrottled(t *testing.T) {
	r := loginEngine(NewRateLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		if w := attemptLogin(r, "198.51.100.4:40000", ""); w.Code != http.StatusOK {
			t.Fatalf("attempt %d = %d, want 200", i+1, w.Code)
		}
	}

	w := attemptLogin(r, "198.51.100.4:40000", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("throttled attempt = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("throttled response is missing the Retry-After header")
	}

	// 响应体沿用统一的 code/message 信封
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse throttled response: %v", err)
	}
	if body["code"] != float64(429) {
		t.Errorf("envelope code = %v, want 429", body["code"])
	}
}

func TestRateLimit_KeyedByClientIPBehindProxy(t *testing.T) {
	r := loginEngine(NewRateLimiter(1, time.Minute))

	// Same X-Forwarded-For through two proxy hops counts as one client.
	attemptLogin(r, "10.0.0.1:1111", "203.0.113.50")
	w := attemptLogin(r, "10.0.0.2:2222", "203.0.113.50")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second attempt from the same forwarded IP = %d, want 429", w.Code)
	}
}

func TestRateLimiter_ConcurrentAttempts(t *testing.T) {
	rl := NewRateLimiter(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.Allow("198.51.100.4")
		}()
	}
	wg.Wait()

	// 100 次尝试后额度必然耗尽
	if rl.Allow("198.51.100.4") {
		t.Error("limit not exhausted after concurrent attempts")
	}
}
