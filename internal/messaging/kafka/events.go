package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Topics для Kafka
const (
	TopicSalesEvents   = "storefront.sales.events"
	TopicCatalogEvents = "storefront.catalog.events"
)

// StorefrontEvent — сообщение, публикуемое в Kafka.
type StorefrontEvent struct {
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// NewStorefrontEvent строит сообщение из доменного события.
func NewStorefrontEvent(event domain.Event) *StorefrontEvent {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &StorefrontEvent{
		EventType:   event.Type,
		AggregateID: event.AggregateID,
		Timestamp:   ts,
		Payload:     event.Payload,
	}
}

// TopicFor возвращает топик для типа события.
func TopicFor(eventType string) string {
	switch eventType {
	case domain.EventSaleRecorded:
		return TopicSalesEvents
	default:
		return TopicCatalogEvents
	}
}
