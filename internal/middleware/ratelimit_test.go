package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterBurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 3, nil)
	h := rl.Handler(okHandler())

	for i := range 3 {
		if rec := hit(h, "192.168.1.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := hit(h, "192.168.1.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, nil)
	rl.now = func() time.Time { return now }
	h := rl.Handler(okHandler())

	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	now = now.Add(1500 * time.Millisecond)
	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refill, got %d", rec.Code)
	}
}

func TestRateLimiterKeys(t *testing.T) {
	rl := NewRateLimiter(10, 1, func(r *http.Request) string { return r.Header.Get("X-Client") })
	h := rl.Handler(okHandler())

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		req.Header.Set("X-Client", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if send("a") != http.StatusOK || send("a") != http.StatusTooManyRequests {
		t.Error("expected client a to be limited after one request")
	}
	if send("b") != http.StatusOK {
		t.Error("expected client b to be unaffected")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, 1, nil)
	rl.now = func() time.Time { return now }
	hit(rl.Handler(okHandler()), "10.0.0.9:1")
	if rl.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", rl.Len())
	}
	now = now.Add(time.Hour)
	rl.cleanup(time.Minute)
	if rl.Len() != 0 {
		t.Errorf("expected idle bucket removed, got %d", rl.Len())
	}
}
