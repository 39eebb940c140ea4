package api

import (
	"os"
	"strconv"
	"sync"

	"github.com/tamperscope/tamperscope/pkg/risk"
)

// ReportCache is a thread-safe LRU cache for loaded reports. Reports are
// immutable once stored, so entries never go stale.
type ReportCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	order   []string // oldest first
}

type cacheEntry struct {
	report *risk.Report
}

// NewReportCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 100.
func NewReportCache(maxSize int) *ReportCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &ReportCache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
	}
}

// NewReportCacheFromEnv creates a cache with size from REPORT_CACHE_SIZE env var.
func NewReportCacheFromEnv() *ReportCache {
	size := 100
	if v := os.Getenv("REPORT_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewReportCache(size)
}

// Get retrieves a report from the cache, or nil if not found.
func (c *ReportCache) Get(id string) *risk.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil
	}

	c.moveToEnd(id)
	return entry.report
}

// Put adds a report to the cache, evicting the least recently used if full.
func (c *ReportCache) Put(id string, report *risk.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; ok {
		c.entries[id] = &cacheEntry{report: report}
		c.moveToEnd(id)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[id] = &cacheEntry{report: report}
	c.order = append(c.order, id)
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReportCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}
