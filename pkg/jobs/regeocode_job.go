// Package jobs holds background work scheduled alongside the HTTP server.
package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/yair/conference-portal/pkg/catalog"
	"github.com/yair/conference-portal/pkg/logging"
)

// Regeocoder is satisfied by *catalog.Store.
type Regeocoder interface {
	Regeocode(ctx context.Context, resolver catalog.Resolver, force bool) (catalog.RegeocodeReport, error)
}

// unresolvedForgetter is implemented by *geocode.Resolver.
type unresolvedForgetter interface {
	ForgetUnresolved() int
}

// RegeocodeJob periodically retries geocoding for events that still have no
// coordinates. Runs never overlap.
type RegeocodeJob struct {
	catalog  Regeocoder
	resolver catalog.Resolver
	schedule string

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewRegeocodeJob validates schedule, a standard 5-field cron expression or
// descriptor such as "@hourly". An empty schedule yields a disabled job.
func NewRegeocodeJob(c Regeocoder, resolver catalog.Resolver, schedule string) (*RegeocodeJob, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid re-geocode schedule %q: %w", schedule, err)
		}
	}
	return &RegeocodeJob{catalog: c, resolver: resolver, schedule: schedule}, nil
}

func (j *RegeocodeJob) Enabled() bool {
	return j.schedule != ""
}

// Start schedules the job. It is a no-op when disabled or already started.
func (j *RegeocodeJob) Start() error {
	if !j.Enabled() {
		logging.Info("re-geocode job disabled")
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.Run(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule re-geocode job: %w", err)
	}

	c.Start()
	j.cron, j.cancel = c, cancel
	logging.Info("re-geocode job started", "schedule", j.schedule)
	return nil
}

// Stop cancels a running pass and waits for it to return.
func (j *RegeocodeJob) Stop() {
	j.mu.Lock()
	c, cancel := j.cron, j.cancel
	j.cron, j.cancel = nil, nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	logging.Info("re-geocode job stopped")
}

// Run performs one pass over events missing coordinates. Cached misses are
// dropped first, otherwise every pass would answer from the cache.
func (j *RegeocodeJob) Run(ctx context.Context) {
	if f, ok := j.resolver.(unresolvedForgetter); ok {
		logging.Debug("dropped cached geocode misses", "count", f.ForgetUnresolved())
	}
	report, err := j.catalog.Regeocode(ctx, j.resolver, false)
	if err != nil {
		logging.Error("re-geocode pass failed", err)
		return
	}
	logging.Info("re-geocode pass done", "geocoded", report.Geocoded, "failed", report.Failed, "total", report.Total)
}
