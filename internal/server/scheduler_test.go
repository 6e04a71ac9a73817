package server

import (
	"context"
	"io"
	"log"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/worker"
)

// fakeLock stands in for the shared redis lock across scheduler replicas.
type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
	sets int
	dels int
}

func (f *fakeLock) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.held[key] = true
	return redis.NewBoolResult(true, nil)
}

func (f *fakeLock) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels++
	for _, k := range keys {
		delete(f.held, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestSchedulerLockCoversWholeWindow(t *testing.T) {
	lock := &fakeLock{}
	quiet := log.New(io.Discard, "", 0)

	newReplica := func() (*Scheduler, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock.New: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		sched := &Scheduler{
			Indexer:  worker.NewIndexer(&catalog.Store{DB: db}, nil, quiet),
			Rdb:      lock,
			CronSpec: "@daily",
			Logger:   quiet,
		}
		return sched, mock
	}

	a, mockA := newReplica()
	mockA.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// The second replica's store carries no expectations: touching it at all
	// means the lock failed to keep it out.
	b, _ := newReplica()

	a.tick()
	if err := mockA.ExpectationsWereMet(); err != nil {
		t.Fatalf("winning replica must reindex: %v", err)
	}
	if lock.dels != 0 {
		t.Fatal("a successful run must keep the lock until the window ends")
	}

	// The winner is already done; the loser's own lastRun is still nil.
	b.tick()
	if lock.sets != 2 {
		t.Fatalf("both replicas must contend for the lock, got %d attempts", lock.sets)
	}
	if lock.dels != 0 {
		t.Fatal("losing replica started a rebuild of its own")
	}
	b.mu.Lock()
	covered := b.lastRun != nil
	b.mu.Unlock()
	if !covered {
		t.Fatal("losing replica must record the window as covered")
	}
}

func TestLockTTLTracksCronWindow(t *testing.T) {
	if ttl := lockTTL("@hourly"); ttl < 50*time.Minute || ttl > time.Hour {
		t.Fatalf("hourly lock ttl %v", ttl)
	}
	if ttl := lockTTL("@daily"); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("daily lock ttl %v", ttl)
	}
	if ttl := lockTTL("not a cron"); ttl < 23*time.Hour {
		t.Fatalf("invalid spec must fall back to the daily window, got %v", ttl)
	}
	if ttl := lockTTL("*/5 * * * *"); ttl < time.Minute || ttl > 4*time.Minute {
		t.Fatalf("five-minute cron lock ttl %v", ttl)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Now()
	recent := now.Add(-10 * time.Minute)
	old := now.Add(-25 * time.Hour)

	cases := []struct {
		name string
		spec string
		last *time.Time
		want bool
	}{
		{"daily never run", "@daily", nil, true},
		{"daily recent", "@daily", &recent, false},
		{"daily stale", "@daily", &old, true},
		{"hourly recent", "@hourly", &recent, false},
		{"hourly stale", "@hourly", &old, true},
		{"cron never run", "0 3 * * *", nil, true},
		{"cron stale", "*/5 * * * *", &recent, true},
		{"invalid spec stale", "not a cron", &old, true},
		{"invalid spec recent", "not a cron", &recent, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDue(tc.spec, tc.last); got != tc.want {
				t.Fatalf("isDue(%q) = %v, want %v", tc.spec, got, tc.want)
			}
		})
	}
}
