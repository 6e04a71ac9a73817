package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/shopchat/internal/worker"
)

const reindexLockKey = "shopchat:reindex:lock"

// reindexLocker is the slice of the redis client the scheduler locks with.
type reindexLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Scheduler periodically rebuilds the whole catalog index so passages track
// catalog edits. With redis available, a SetNX lock that lives until the next
// window keeps replicas from running the same rebuild twice.
type Scheduler struct {
	Indexer  *worker.Indexer
	Rdb      reindexLocker
	CronSpec string
	Stop     chan struct{}
	Logger   *log.Logger

	mu      sync.Mutex
	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if !isDue(s.CronSpec, last) {
		return
	}

	ctx := context.Background()
	if s.Rdb != nil {
		// The lock outlives the run and expires with the window, so a
		// replica with a stale lastRun cannot start a second rebuild after
		// the winner finishes.
		ok, err := s.Rdb.SetNX(ctx, reindexLockKey, "1", lockTTL(s.CronSpec)).Result()
		if err != nil {
			s.Logger.Printf("warn: reindex lock unavailable: %v", err)
			return
		}
		if !ok {
			// Another replica covers this window.
			s.markRun()
			return
		}
	}
	s.markRun()

	n, err := s.Indexer.ReindexAll(ctx)
	if err != nil {
		reindexRuns.WithLabelValues("failed").Inc()
		s.Logger.Printf("scheduled reindex failed: %v", err)
		if s.Rdb != nil {
			// Free the window so a later tick can retry.
			s.Rdb.Del(ctx, reindexLockKey)
		}
		return
	}
	reindexRuns.WithLabelValues("succeeded").Inc()
	s.Logger.Printf("scheduled reindex rebuilt %d products", n)
}

func (s *Scheduler) markRun() {
	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()
}

// lockTTL is how long the reindex lock must survive: until the next window
// opens, less a minute of slack so an expiring lock never blocks the run it
// guards.
func lockTTL(cronSpec string) time.Duration {
	now := time.Now()
	var next time.Time
	switch cronSpec {
	case "@daily":
		next = now.Add(24 * time.Hour)
	case "@hourly":
		next = now.Add(time.Hour)
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			next = now.Add(24 * time.Hour)
		} else {
			next = expr.Next(now)
		}
	}
	ttl := next.Sub(now) - time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// isDue determines if a rebuild with cronSpec should run now based on the
// last run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
