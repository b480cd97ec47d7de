package kafka

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

type eventSender interface {
	PublishEvent(topic string, key string, event any) error
}

// EventPublisher реализует domain.EventPublisher поверх Producer.
type EventPublisher struct {
	sender  eventSender
	metrics *metrics.StorefrontMetrics
	logger  *log.Entry
}

var _ domain.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher создаёт publisher доменных событий.
func NewEventPublisher(producer *Producer, m *metrics.StorefrontMetrics, logger *log.Entry) *EventPublisher {
	return newEventPublisher(producer, m, logger)
}

func newEventPublisher(sender eventSender, m *metrics.StorefrontMetrics, logger *log.Entry) *EventPublisher {
	if logger == nil {
		logger = log.WithField("component", "event-publisher")
	}
	return &EventPublisher{
		sender:  sender,
		metrics: m,
		logger:  logger,
	}
}

// Publish отправляет событие в топик, соответствующий его типу.
// Сообщения ключуются AggregateID, поэтому события одной сущности идут по порядку.
func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Type == "" {
		return fmt.Errorf("publish event: empty event type")
	}

	topic := TopicFor(event.Type)
	if err := p.sender.PublishEvent(topic, event.AggregateID, NewStorefrontEvent(event)); err != nil {
		p.metrics.RecordEventPublished(event.Type, metrics.OutcomeFailure)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.metrics.RecordEventPublished(event.Type, metrics.OutcomeSuccess)
	p.logger.WithFields(log.Fields{
		"event_type":   event.Type,
		"aggregate_id": event.AggregateID,
		"topic":        topic,
	}).Debug("domain event published")
	return nil
}
