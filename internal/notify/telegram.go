package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"

	dmodels "T0Pilot/internal/domain/models"
	"T0Pilot/pkg/logger"
)

// TelegramNotifier pushes actionable signals, fills, and regime changes to a
// Telegram chat. Publish never blocks the engine; sends go through a small
// buffered channel and a single worker.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	log    *logger.Logger

	events chan dmodels.EngineEvent
	once   sync.Once
	done   chan struct{}
}

func NewTelegramNotifier(token string, chatID int64, log *logger.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	n := &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		log:    log,
		events: make(chan dmodels.EngineEvent, 256),
		done:   make(chan struct{}),
	}
	go n.drain()
	return n, nil
}

// Publish queues a notification. Hold signals are skipped.
func (n *TelegramNotifier) Publish(ev dmodels.EngineEvent) {
	if ev.Kind == dmodels.EventSignal && (ev.Signal == nil || !ev.Signal.Actionable()) {
		return
	}
	select {
	case n.events <- ev:
	case <-n.done:
	default:
		// chat notifications are best effort
	}
}

func (n *TelegramNotifier) drain() {
	for {
		select {
		case <-n.done:
			return
		case ev := <-n.events:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: n.chatID,
				Text:   formatEvent(ev),
			})
			cancel()
			if err != nil {
				n.log.Warn("telegram send failed",
					logger.String("symbol", ev.Symbol),
					logger.Error(err))
			}
		}
	}
}

// Close stops the worker.
func (n *TelegramNotifier) Close() error {
	n.once.Do(func() { close(n.done) })
	return nil
}

func formatEvent(ev dmodels.EngineEvent) string {
	switch ev.Kind {
	case dmodels.EventSignal:
		s := ev.Signal
		msg := fmt.Sprintf("📊 %s %s %d shares\n%s\nconfidence %.0f%%",
			ev.Symbol, s.Type.String(), s.Shares, s.Reason, s.Confidence*100)
		if s.PriceTarget != nil {
			msg += fmt.Sprintf("\ntarget %.2f", *s.PriceTarget)
		}
		if s.StopLoss != nil {
			msg += fmt.Sprintf("\nstop %.2f", *s.StopLoss)
		}
		return msg
	case dmodels.EventTrade:
		t := ev.Trade
		return fmt.Sprintf("✅ %s %s %d @ %.2f\n%s",
			t.Symbol, t.Direction.String(), t.Shares, t.Price, t.Reason)
	case dmodels.EventRegimeChange:
		return fmt.Sprintf("🔄 %s regime: %s → %s",
			ev.Symbol, ev.OldRegime.String(), ev.NewRegime.String())
	}
	return fmt.Sprintf("%s: %s", ev.Symbol, ev.Kind)
}
