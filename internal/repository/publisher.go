package repository

import (
	"context"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/domain/repository"
)

type keyedProducer interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher streams lifecycle events keyed by ticker, so every event for
// one ticker lands on the same partition in order.
type KafkaPublisher struct {
	producer keyedProducer
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer keyedProducer) repository.EventPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.LifecycleEvent) error {
	return p.producer.Publish(ctx, []byte(ev.Ticker), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops events; used when the stream is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.LifecycleEvent) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
