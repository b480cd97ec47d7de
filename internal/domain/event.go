package domain

import "time"

// Типы доменных событий витрины.
const (
	EventSaleRecorded          = "sale.recorded"
	EventProductDeleted        = "product.deleted"
	EventProductImagesOrphaned = "product.images_orphaned"
)

// Event — доменное событие для внешних подписчиков.
type Event struct {
	Type        string
	AggregateID string
	Payload     any
	OccurredAt  time.Time
}
