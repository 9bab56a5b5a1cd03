package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	reviewsReplaced uint64
	storeRefreshes  uint64
	refreshFailures uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// ReviewReplaced counts committed period reconciliations.
func (c *Collector) ReviewReplaced() {
	atomic.AddUint64(&c.reviewsReplaced, 1)
}

// StoreRefreshed counts entity store refreshes; failed ones kept the previous snapshot.
func (c *Collector) StoreRefreshed(err error) {
	atomic.AddUint64(&c.storeRefreshes, 1)
	if err != nil {
		atomic.AddUint64(&c.refreshFailures, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"reviewsReplacedTotal": atomic.LoadUint64(&c.reviewsReplaced),
		"storeRefreshesTotal":  atomic.LoadUint64(&c.storeRefreshes),
		"refreshFailuresTotal": atomic.LoadUint64(&c.refreshFailures),
	}
}
