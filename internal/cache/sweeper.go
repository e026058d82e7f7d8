package cache

import (
	"sync"
	"time"
)

// Sweeper periodically purges expired entries from a cache. Without a
// sweeper expired entries accumulate until overwritten or invalidated.
type Sweeper struct {
	cache    *TTLCache
	interval time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSweeper returns a sweeper for c. It does nothing until Start is called.
func NewSweeper(c *TTLCache, interval time.Duration) *Sweeper {
	return &Sweeper{
		cache:    c,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the background goroutine. A non-positive interval leaves
// the sweeper idle.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go s.run()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cache.PurgeExpired()
		case <-s.done:
			return
		}
	}
}

// Stop ends the background goroutine and waits for it. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
