package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func healthyCheck(ctx context.Context) CheckResult {
	return CheckResult{Status: StatusHealthy}
}

func TestOverallStatusHealthy(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("hook", true, healthyCheck)
	c.RegisterFunc("journal", false, healthyCheck)

	c.Check(context.Background())
	if got := c.OverallStatus(); got != StatusHealthy {
		t.Errorf("OverallStatus = %s, want healthy", got)
	}
}

func TestCriticalFailureIsUnhealthy(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("hook", true, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Message: "hook lost"}
	})
	c.RegisterFunc("journal", false, healthyCheck)

	c.Check(context.Background())
	if got := c.OverallStatus(); got != StatusUnhealthy {
		t.Errorf("OverallStatus = %s, want unhealthy", got)
	}
}

func TestNonCriticalFailureDegrades(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("hook", true, healthyCheck)
	c.RegisterFunc("snippets", false, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})

	c.Check(context.Background())
	if got := c.OverallStatus(); got != StatusDegraded {
		t.Errorf("OverallStatus = %s, want degraded", got)
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "slow",
		Critical: true,
		Timeout:  50 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow check status = %s, want unhealthy", results["slow"].Status)
	}
}

func TestCheckPanicRecovered(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("bad", true, func(ctx context.Context) CheckResult {
		panic("boom")
	})

	results := c.Check(context.Background())
	if results["bad"].Status != StatusUnhealthy {
		t.Errorf("panicking check status = %s, want unhealthy", results["bad"].Status)
	}
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("hook", true, healthyCheck)
	c.Check(context.Background())

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", rec.Code)
	}

	c.SetReady(true)
	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}
}

func TestHealthHandlerFull(t *testing.T) {
	c := NewChecker()
	c.SetReady(true)
	c.RegisterFunc("hook", true, healthyCheck)

	rec := httptest.NewRecorder()
	c.HealthHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz?full=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusHealthy || !resp.Ready {
		t.Errorf("response = %+v", resp)
	}
	if _, ok := resp.Components["hook"]; !ok {
		t.Error("components missing hook result")
	}
}

func TestAvailabilityCheck(t *testing.T) {
	up := AvailabilityCheck(func() (bool, string) { return true, "" })
	if got := up(context.Background()); got.Status != StatusHealthy {
		t.Errorf("available status = %s", got.Status)
	}

	down := AvailabilityCheck(func() (bool, string) { return false, "permission revoked" })
	got := down(context.Background())
	if got.Status != StatusUnhealthy || got.Message != "permission revoked" {
		t.Errorf("unavailable result = %+v", got)
	}
}

func TestDatabaseCheck(t *testing.T) {
	ok := DatabaseCheck(func(ctx context.Context) error { return nil })
	if got := ok(context.Background()); got.Status != StatusHealthy {
		t.Errorf("healthy ping status = %s", got.Status)
	}

	bad := DatabaseCheck(func(ctx context.Context) error { return errors.New("locked") })
	if got := bad(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("failed ping status = %s", got.Status)
	}
}

func TestDropCheckDeltas(t *testing.T) {
	var dropped uint64
	check := DropCheck(func() uint64 { return dropped })

	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("no drops yet, status = %s", got.Status)
	}

	dropped = 5
	if got := check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("after drops, status = %s", got.Status)
	}

	// Counter unchanged: the degradation clears.
	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("drops stopped, status = %s", got.Status)
	}
}

func TestSnippetCheck(t *testing.T) {
	problems := []string{"bad.toml: parse error"}
	check := SnippetCheck(func() []string { return problems })
	if got := check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("with problems, status = %s", got.Status)
	}

	problems = nil
	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("without problems, status = %s", got.Status)
	}
}
