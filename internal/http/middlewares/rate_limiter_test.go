package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func rateLimitedRouter(limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(limit, window)

	r := gin.New()
	r.POST("/signin", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func hit(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/signin", nil)
	req.RemoteAddr = ip + ":12345"

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	r := rateLimitedRouter(2, time.Minute)

	for i := 0; i < 2; i++ {
		if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := hit(r, "10.0.0.1")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response carries no Retry-After header")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	r := rateLimitedRouter(1, time.Minute)

	if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", rec.Code)
	}

	if rec := hit(r, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("second client blocked by first client's window: status = %d", rec.Code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	r := rateLimitedRouter(1, 20*time.Millisecond)

	if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 inside the window", rec.Code)
	}

	time.Sleep(30 * time.Millisecond)

	if rec := hit(r, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 after the window lapses", rec.Code)
	}
}
