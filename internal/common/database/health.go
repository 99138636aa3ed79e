// internal/common/database/health.go
package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is implemented by every backing client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReport maps a dependency name to "ok" or its ping error.
type HealthReport struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// Failing returns the names of unhealthy dependencies in sorted order.
func (r HealthReport) Failing() []string {
	var names []string
	for name, status := range r.Checks {
		if status != "ok" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckAll pings every dependency concurrently, each bounded by timeout.
func CheckAll(ctx context.Context, deps map[string]Pinger, timeout time.Duration) HealthReport {
	report := HealthReport{Healthy: true, Checks: make(map[string]string, len(deps))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, dep := range deps {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			status := "ok"
			if err := dep.Ping(pctx); err != nil {
				status = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = status
			if status != "ok" {
				report.Healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}
