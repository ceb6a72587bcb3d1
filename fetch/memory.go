package fetch

import (
	"context"
	"sync"
	"time"
)

// MemoryDownloader caches feed bodies in memory, keyed by URL.
// Schedule zips are large and their URLs change daily (the date query
// parameter), so stale entries are pruned on every insert instead of
// accumulating until restart.
type MemoryDownloader struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	TimeNow func() time.Time
}

type memoryEntry struct {
	body      []byte
	fetchedAt time.Time
	ttl       time.Duration
}

func (e memoryEntry) fresh(now time.Time) bool {
	return e.fetchedAt.Add(e.ttl).After(now)
}

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{
		entries: map[string]memoryEntry{},
		TimeNow: time.Now,
	}
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.Cache {
		d.mu.Lock()
		defer d.mu.Unlock()

		if entry, ok := d.entries[url]; ok && entry.fresh(d.TimeNow()) {
			return entry.body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		now := d.TimeNow()
		for key, entry := range d.entries {
			if !entry.fresh(now) {
				delete(d.entries, key)
			}
		}
		d.entries[url] = memoryEntry{
			body:      body,
			fetchedAt: now,
			ttl:       options.CacheTTL,
		}
	}

	return body, nil
}
