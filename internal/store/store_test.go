package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mininik08inv/bookstore/internal/db"
)

// testClock is an injectable clock the tests can move by hand.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// every :memory: connection is its own database, keep the pool at one
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	h := &db.Handle{DB: gdb, Driver: "sqlite"}
	require.NoError(t, h.Migrate())
	return gdb
}

func newTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := newTestClock()
	s := New(zerolog.Nop(), openTestDB(t), Config{Clock: clock.Now})
	return s, clock
}

func seedSteps(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, s.EnsureSteps(context.Background(),
		"placed", "packed", "shipped", "delivered", "cancelled"))
}
