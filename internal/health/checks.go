package health

import (
	"context"
	"fmt"
)

// AvailabilityCheck wraps the hook's and injector's Available method.
// An unavailable hook means no expansion can happen at all.
func AvailabilityCheck(available func() (bool, string)) Check {
	return func(ctx context.Context) CheckResult {
		ok, reason := available()
		if !ok {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: reason,
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}

// DatabaseCheck pings the journal database.
func DatabaseCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: "journal unreachable",
				Error:   err.Error(),
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}

// DropCheck watches the hook's cumulative drop counter. Drops mean the
// pipeline fell behind and triggers were missed; the daemon still
// works, so this only degrades.
func DropCheck(dropped func() uint64) Check {
	var last uint64
	return func(ctx context.Context) CheckResult {
		now := dropped()
		delta := now - last
		last = now
		if delta > 0 {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%d events dropped since last check", delta),
				Details: map[string]any{"total_dropped": now},
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}

// SnippetCheck reports library load problems. A broken library file
// degrades but never disables expansion.
func SnippetCheck(problems func() []string) Check {
	return func(ctx context.Context) CheckResult {
		ps := problems()
		if len(ps) > 0 {
			details := make(map[string]any, 1)
			details["problems"] = ps
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%d snippet libraries have problems", len(ps)),
				Details: details,
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}
