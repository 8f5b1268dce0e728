package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/config"
	"github.com/aliskhannn/image-optimizer/internal/model"
)

const (
	queueSize   = 256
	sendTimeout = 10 * time.Second
)

// sender is the part of the Kafka client used to deliver events.
type sender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// Producer publishes archive lifecycle events to Kafka.
// Publish never blocks the caller: events are queued and delivered by Run.
// When the queue is full the event is dropped and logged.
type Producer struct {
	client   sender
	strategy retry.Strategy
	cfg      *config.Kafka
	events   chan model.Event
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy used for each send
func New(cfg *config.Kafka, s retry.Strategy) *Producer {
	return newWithClient(wbfkafka.NewProducer(cfg.Brokers, cfg.Topic), cfg, s)
}

func newWithClient(client sender, cfg *config.Kafka, s retry.Strategy) *Producer {
	return &Producer{
		client:   client,
		strategy: s,
		cfg:      cfg,
		events:   make(chan model.Event, queueSize),
	}
}

// Publish queues the event for delivery.
func (p *Producer) Publish(ev model.Event) {
	select {
	case p.events <- ev:
	default:
		zlog.Logger.Warn().
			Str("type", string(ev.Type)).
			Str("archive", ev.Name).
			Msg("event queue full, dropping event")
	}
}

// Run delivers queued events until ctx is canceled, then drains what is left
// and closes the client.
func (p *Producer) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if err := p.client.Close(); err != nil {
			zlog.Logger.Err(err).Msg("failed to close kafka producer")
			return
		}
		zlog.Logger.Info().Msg("kafka producer closed")
	}()

	zlog.Logger.Info().
		Str("topic", p.cfg.Topic).
		Msg("starting event producer")

	for {
		select {
		case ev := <-p.events:
			p.send(ev)
		case <-ctx.Done():
			zlog.Logger.Info().Msg("shutdown signal received, draining event queue")
			for {
				select {
				case ev := <-p.events:
					p.send(ev)
				default:
					return
				}
			}
		}
	}
}

// send serializes the event to JSON and sends it to Kafka.
// The archive name is used as the message key so all events of one archive
// land on the same partition.
func (p *Producer) send(ev model.Event) {
	if err := p.produce(ev); err != nil {
		zlog.Logger.Err(err).
			Str("type", string(ev.Type)).
			Str("archive", ev.Name).
			Msg("failed to publish event")
	}
}

func (p *Producer) produce(ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := p.client.SendWithRetry(ctx, p.strategy, []byte(ev.Name), data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Nop discards events. It is used when Kafka is disabled.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(model.Event) {}
