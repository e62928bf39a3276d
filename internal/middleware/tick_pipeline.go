package middleware

import (
	"fmt"
	"time"

	"T0Pilot/internal/domain/models"
	domrepo "T0Pilot/internal/domain/repository"
)

// TickPipeline sits between the feed and the quote cache. It validates
// incoming partial ticks and throttles per-symbol update rates so a bursty
// vendor cannot starve the cache worker.
type TickPipeline struct {
	metrics  domrepo.Metrics
	maxRPS   int
	lastSeen map[string]time.Time
}

type PipelineOption func(*TickPipeline)

// WithMaxRPS sets the max accepted ticks per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

func NewTickPipeline(metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		metrics:  metrics,
		maxRPS:   20,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admit reports whether the tick should reach the cache. Invalid ticks and
// throttled updates are counted and dropped; neither is an error for the
// caller. Only the cache worker goroutine may call Admit.
func (p *TickPipeline) Admit(t *models.Tick, now time.Time) bool {
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("tick_validate")
		return false
	}
	if !p.allow(t.Symbol, now) {
		p.metrics.RecordError("tick_throttle")
		return false
	}
	return true
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Price != nil && *t.Price < 0 {
		return fmt.Errorf("negative price")
	}
	if t.Bid != nil && *t.Bid < 0 || t.Ask != nil && *t.Ask < 0 {
		return fmt.Errorf("negative book price")
	}
	if t.Volume != nil && *t.Volume < 0 {
		return fmt.Errorf("negative volume")
	}
	return nil
}

func (p *TickPipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	last := p.lastSeen[symbol]
	if last.IsZero() || now.Sub(last) >= time.Second/time.Duration(p.maxRPS) {
		p.lastSeen[symbol] = now
		return true
	}
	return false
}
