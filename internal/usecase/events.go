package usecase

import (
	"context"
	"sync"
	"time"

	"T0Pilot/internal/domain/models"
	drepo "T0Pilot/internal/domain/repository"
	"T0Pilot/pkg/kafka"
	"T0Pilot/pkg/logger"
)

// KafkaEventSink streams engine events to a Kafka topic for downstream
// analysis. Publish never blocks the engine: events buffer into a channel a
// single worker drains, and overflow is dropped with an error metric.
type KafkaEventSink struct {
	producer *kafka.Producer
	topic    string
	metrics  drepo.Metrics
	log      *logger.Logger

	events chan models.EngineEvent
	once   sync.Once
	done   chan struct{}
}

func NewKafkaEventSink(producer *kafka.Producer, topic string, metrics drepo.Metrics, log *logger.Logger) *KafkaEventSink {
	s := &KafkaEventSink{
		producer: producer,
		topic:    topic,
		metrics:  metrics,
		log:      log,
		events:   make(chan models.EngineEvent, 1024),
		done:     make(chan struct{}),
	}
	go s.drain()
	return s
}

// Publish queues an event for delivery.
func (s *KafkaEventSink) Publish(ev models.EngineEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	default:
		s.metrics.RecordError("event_overflow")
	}
}

func (s *KafkaEventSink) drain() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := s.producer.Publish(ctx, s.topic, []byte(ev.Symbol), ev)
			cancel()
			if err != nil {
				s.metrics.RecordError("event_publish")
				s.log.Warn("event publish failed",
					logger.String("symbol", ev.Symbol),
					logger.String("kind", string(ev.Kind)),
					logger.Error(err))
			}
		}
	}
}

// Close stops the worker. Buffered events are discarded.
func (s *KafkaEventSink) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.producer.Close()
}

// StoreSink persists trades and actionable signals as they happen.
type StoreSink struct {
	store   drepo.TradeStore
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewStoreSink(store drepo.TradeStore, metrics drepo.Metrics, log *logger.Logger) *StoreSink {
	return &StoreSink{store: store, metrics: metrics, log: log}
}

// Publish writes the event's payload to the trade store. Hold signals are
// skipped, they dominate the stream and carry no position change.
func (s *StoreSink) Publish(ev models.EngineEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch ev.Kind {
	case models.EventTrade:
		if ev.Trade != nil {
			err = s.store.SaveTrade(ctx, ev.Trade)
		}
	case models.EventSignal:
		if ev.Signal != nil && ev.Signal.Actionable() {
			err = s.store.SaveSignal(ctx, ev.Symbol, *ev.Signal, ev.At)
		}
	}
	if err != nil {
		s.metrics.RecordError("event_persist")
		s.log.Warn("event persist failed",
			logger.String("symbol", ev.Symbol),
			logger.String("kind", string(ev.Kind)),
			logger.Error(err))
	}
}
