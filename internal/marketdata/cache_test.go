package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"T0Pilot/internal/domain/models"
	"T0Pilot/pkg/logger"
)

// fakeFeed is a scriptable MarketFeed: ticks pushed to the channel come out
// of ReadTick, Close unblocks any pending read.
type fakeFeed struct {
	connectErr error
	ticks      chan *models.Tick

	mu     sync.Mutex
	subs   []string
	closed bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ticks: make(chan *models.Tick, 16)}
}

func (f *fakeFeed) Connect(ctx context.Context) error { return f.connectErr }

func (f *fakeFeed) Subscribe(symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, symbol)
	return nil
}

func (f *fakeFeed) Unsubscribe(symbol string) error { return nil }

func (f *fakeFeed) ReadTick() (*models.Tick, error) {
	t, ok := <-f.ticks
	if !ok {
		return nil, errors.New("feed closed")
	}
	return t, nil
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ticks)
	}
	return nil
}

func (f *fakeFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func cacheLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func fp(v float64) *float64 { return &v }
func ip(v int64) *int64     { return &v }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestCachePartialTickMerge(t *testing.T) {
	feed := newFakeFeed()
	c := NewCache(feed, nil, cacheLogger(t))
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	require.NoError(t, c.Subscribe("AAPL"))
	assert.True(t, c.IsConnected())

	feed.ticks <- &models.Tick{Symbol: "AAPL", Price: fp(100), Volume: ip(5000)}
	waitFor(t, func() bool {
		q, ok := c.GetQuote("AAPL")
		return ok && q.Price == 100
	})

	// A book-only tick must not erase the last price.
	feed.ticks <- &models.Tick{Symbol: "AAPL", Bid: fp(99.9), Ask: fp(100.1), BidSize: ip(300), AskSize: ip(400)}
	waitFor(t, func() bool {
		q, _ := c.GetQuote("AAPL")
		return q.Bid == 99.9
	})

	q, ok := c.GetQuote("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 100.0, q.Price, 1e-9)
	assert.InDelta(t, 100.1, q.Ask, 1e-9)
	assert.Equal(t, int64(5000), q.Volume)
	assert.Equal(t, int64(300), q.BidSize)
	assert.False(t, q.UpdatedAt.IsZero())
}

func TestCacheIgnoresUnsubscribedSymbols(t *testing.T) {
	feed := newFakeFeed()
	c := NewCache(feed, nil, cacheLogger(t))
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	feed.ticks <- &models.Tick{Symbol: "TSLA", Price: fp(200)}
	// Give the worker a moment; the quote must never appear.
	time.Sleep(50 * time.Millisecond)
	_, ok := c.GetQuote("TSLA")
	assert.False(t, ok)
}

func TestCacheUnsubscribeDropsQuote(t *testing.T) {
	feed := newFakeFeed()
	c := NewCache(feed, nil, cacheLogger(t))
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	require.NoError(t, c.Subscribe("AAPL"))
	require.NoError(t, c.Unsubscribe("AAPL"))
	_, ok := c.GetQuote("AAPL")
	assert.False(t, ok)
}

func TestCacheStartFailsWhenConnectFails(t *testing.T) {
	feed := newFakeFeed()
	feed.connectErr = errors.New("dial refused")
	c := NewCache(feed, nil, cacheLogger(t))

	err := c.Start(context.Background(), time.Second)
	require.Error(t, err)
	assert.False(t, c.IsConnected())
}

func TestCacheStopIsIdempotent(t *testing.T) {
	feed := newFakeFeed()
	c := NewCache(feed, nil, cacheLogger(t))
	require.NoError(t, c.Start(context.Background(), time.Second))

	c.Stop()
	c.Stop()
	assert.True(t, feed.isClosed())
	assert.False(t, c.IsConnected())
	assert.Error(t, c.Subscribe("AAPL"))
}

func TestCacheDoubleStartRejected(t *testing.T) {
	feed := newFakeFeed()
	c := NewCache(feed, nil, cacheLogger(t))
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	assert.Error(t, c.Start(context.Background(), time.Second))
}

// slowDialFeed blocks in Connect until the dial context expires.
type slowDialFeed struct{}

func (f *slowDialFeed) Connect(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (f *slowDialFeed) Subscribe(symbol string) error     { return nil }
func (f *slowDialFeed) Unsubscribe(symbol string) error   { return nil }
func (f *slowDialFeed) ReadTick() (*models.Tick, error)   { return nil, errors.New("not connected") }
func (f *slowDialFeed) Close() error                      { return nil }

func TestCacheStopWithoutStartNeverBlocks(t *testing.T) {
	c := NewCache(newFakeFeed(), nil, cacheLogger(t))

	done := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a cache that never started")
	}
}

func TestCacheStartTimeoutBoundsTheDial(t *testing.T) {
	c := NewCache(&slowDialFeed{}, nil, cacheLogger(t))

	begin := time.Now()
	err := c.Start(context.Background(), 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed not connected after")
	assert.Less(t, time.Since(begin), time.Second)

	c.Stop()
}
