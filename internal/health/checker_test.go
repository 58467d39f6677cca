package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type staticCheck struct {
	err error
}

func (c staticCheck) HealthCheck(ctx context.Context) error {
	return c.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecker_Check(t *testing.T) {
	checker := NewChecker(testLogger())
	checker.AddCheck("up", staticCheck{})
	checker.AddCheck("down", staticCheck{err: errors.New("unreachable")})

	results := checker.Check(context.Background())

	if results["up"] != "OK" {
		t.Fatalf("up = %q", results["up"])
	}
	if results["down"] != "unreachable" {
		t.Fatalf("down = %q", results["down"])
	}
}

func TestChecker_Handler(t *testing.T) {
	testCases := []struct {
		name       string
		checkErr   error
		wantStatus int
	}{
		{name: "healthy", checkErr: nil, wantStatus: 200},
		{name: "unhealthy", checkErr: errors.New("db down"), wantStatus: 503},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			checker := NewChecker(testLogger())
			checker.AddCheck("dep", staticCheck{err: tc.checkErr})

			rec := httptest.NewRecorder()
			checker.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if _, ok := body["dep"]; !ok {
				t.Fatalf("body = %v, want the dep status", body)
			}
		})
	}
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewRedisChecker(client)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}

	mr.Close()
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected an error after redis went away")
	}
}
