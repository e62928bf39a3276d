package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"T0Pilot/internal/domain/models"
	"T0Pilot/internal/domain/repository"
	mid "T0Pilot/internal/middleware"
	"T0Pilot/pkg/logger"
)

type cmdKind uint8

const (
	cmdSubscribe cmdKind = iota
	cmdUnsubscribe
	cmdStop
)

type command struct {
	kind   cmdKind
	symbol string
	reply  chan error
}

// Cache owns the market feed. A single background worker reads ticks and
// serves subscribe/unsubscribe commands; readers access the quote map under
// a mutex. Partial ticks merge into the cached quote without erasing fields
// the update did not carry.
type Cache struct {
	feed repository.MarketFeed
	pipe *mid.TickPipeline
	log  *logger.Logger

	mu     sync.RWMutex
	quotes map[string]*models.Quote

	cmds chan command
	done chan struct{}

	stateMu   sync.Mutex
	started   bool
	stopped   bool
	connected bool
	runErr    error
}

// NewCache creates a cache over the given feed. pipe may be nil to accept
// every tick unfiltered.
func NewCache(feed repository.MarketFeed, pipe *mid.TickPipeline, log *logger.Logger) *Cache {
	return &Cache{
		feed:   feed,
		pipe:   pipe,
		log:    log,
		quotes: make(map[string]*models.Quote),
		cmds:   make(chan command, 64),
		done:   make(chan struct{}),
	}
}

// Start connects the feed and launches the worker. It blocks until the feed
// is connected or the timeout elapses.
func (c *Cache) Start(ctx context.Context, timeout time.Duration) error {
	c.stateMu.Lock()
	if c.started {
		c.stateMu.Unlock()
		return fmt.Errorf("market cache already started")
	}
	c.started = true
	c.stateMu.Unlock()

	// The dial itself runs under the start timeout so a hung handshake
	// cannot block Start past its deadline.
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := make(chan error, 1)
	go c.run(ctx, dialCtx, ready)

	select {
	case err := <-ready:
		if err != nil && dialCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("market cache: feed not connected after %s", timeout)
		}
		return err
	case <-ctx.Done():
		c.Stop()
		return ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, dialCtx context.Context, ready chan<- error) {
	defer close(c.done)

	if err := c.feed.Connect(dialCtx); err != nil {
		c.setErr(err)
		ready <- err
		return
	}
	c.stateMu.Lock()
	c.connected = true
	c.stateMu.Unlock()
	ready <- nil

	ticks := make(chan *models.Tick, 256)
	readErr := make(chan error, 1)
	go func() {
		for {
			tick, err := c.feed.ReadTick()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case ticks <- tick:
			default:
				// reader outpaced the worker, drop
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case cmd := <-c.cmds:
			if cmd.kind == cmdStop {
				c.shutdown()
				cmd.reply <- nil
				return
			}
			cmd.reply <- c.handleSub(cmd)
		case tick := <-ticks:
			if c.pipe != nil && !c.pipe.Admit(tick, time.Now()) {
				continue
			}
			c.applyTick(tick)
		case err := <-readErr:
			c.setErr(err)
			c.log.Error("market feed read failed", logger.Error(err))
			c.shutdown()
			return
		}
	}
}

func (c *Cache) handleSub(cmd command) error {
	switch cmd.kind {
	case cmdSubscribe:
		c.mu.Lock()
		if _, ok := c.quotes[cmd.symbol]; !ok {
			c.quotes[cmd.symbol] = &models.Quote{Symbol: cmd.symbol}
		}
		c.mu.Unlock()
		return c.feed.Subscribe(cmd.symbol)
	case cmdUnsubscribe:
		c.mu.Lock()
		delete(c.quotes, cmd.symbol)
		c.mu.Unlock()
		return c.feed.Unsubscribe(cmd.symbol)
	}
	return nil
}

func (c *Cache) applyTick(t *models.Tick) {
	if t == nil || t.Symbol == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[t.Symbol]
	if !ok {
		// tick for a symbol we never subscribed, ignore
		return
	}
	if t.Price != nil {
		q.Price = *t.Price
	}
	if t.Bid != nil {
		q.Bid = *t.Bid
	}
	if t.Ask != nil {
		q.Ask = *t.Ask
	}
	if t.High != nil {
		q.High = *t.High
	}
	if t.Low != nil {
		q.Low = *t.Low
	}
	if t.Open != nil {
		q.Open = *t.Open
	}
	if t.PrevClose != nil {
		q.PrevClose = *t.PrevClose
	}
	if t.VWAP != nil {
		q.VWAP = *t.VWAP
	}
	if t.Volume != nil {
		q.Volume = *t.Volume
	}
	if t.BidSize != nil {
		q.BidSize = *t.BidSize
	}
	if t.AskSize != nil {
		q.AskSize = *t.AskSize
	}
	q.UpdatedAt = time.Now()
}

// Subscribe asks the worker to start caching a symbol. Blocks until the
// worker acknowledges or the cache is stopped.
func (c *Cache) Subscribe(symbol string) error {
	return c.send(command{kind: cmdSubscribe, symbol: symbol, reply: make(chan error, 1)})
}

// Unsubscribe drops a symbol from the cache and the feed.
func (c *Cache) Unsubscribe(symbol string) error {
	return c.send(command{kind: cmdUnsubscribe, symbol: symbol, reply: make(chan error, 1)})
}

func (c *Cache) send(cmd command) error {
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return fmt.Errorf("market cache stopped")
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return fmt.Errorf("market cache stopped")
	}
}

// Stop shuts down the worker and closes the feed. Safe to call more than
// once.
func (c *Cache) Stop() {
	c.stateMu.Lock()
	if c.stopped {
		started := c.started
		c.stateMu.Unlock()
		// done only ever closes once the worker ran
		if started {
			<-c.done
		}
		return
	}
	c.stopped = true
	started := c.started
	c.stateMu.Unlock()

	if !started {
		return
	}
	cmd := command{kind: cmdStop, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
		<-c.done
	case <-c.done:
	}
}

func (c *Cache) shutdown() {
	if err := c.feed.Close(); err != nil {
		c.log.Warn("feed close failed", logger.Error(err))
	}
	c.stateMu.Lock()
	c.connected = false
	c.stateMu.Unlock()
}

func (c *Cache) setErr(err error) {
	c.stateMu.Lock()
	if c.runErr == nil {
		c.runErr = err
	}
	c.stateMu.Unlock()
}

// Err reports the first fatal worker error, nil while healthy.
func (c *Cache) Err() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.runErr
}

// IsConnected reports whether the feed is live.
func (c *Cache) IsConnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.connected
}

// GetQuote returns a copy of the cached quote for symbol.
func (c *Cache) GetQuote(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return models.Quote{}, false
	}
	return *q, true
}

// GetAllQuotes returns copies of every cached quote.
func (c *Cache) GetAllQuotes() []models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Quote, 0, len(c.quotes))
	for _, q := range c.quotes {
		out = append(out, *q)
	}
	return out
}
