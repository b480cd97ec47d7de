package domain

import "context"

// ImageStore описывает object store для изображений товаров.
type ImageStore interface {
	// Upload сохраняет файл под ключом file.Name и возвращает публичный URL.
	Upload(ctx context.Context, file ImageFile) (string, error)
	// Delete удаляет объект по ключу; отсутствие объекта ошибкой не считается.
	Delete(ctx context.Context, key string) error
}

// PaymentProvider описывает взаимодействие с платёжным провайдером.
type PaymentProvider interface {
	// CreateCheckoutSession создаёт hosted-checkout сессию.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
	// CreateCustomer регистрирует покупателя и возвращает его идентификатор.
	CreateCustomer(ctx context.Context, customer Customer) (string, error)
	// ParseWebhookEvent проверяет подпись и разбирает событие.
	ParseWebhookEvent(payload []byte, signature string) (PaymentEvent, error)
	// ListSessionLineItems возвращает позиции оплаченной сессии.
	ListSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
}

// IdentityProvider ищет профиль покупателя по email.
type IdentityProvider interface {
	LookupCustomer(ctx context.Context, email string) (Customer, error)
}

// EventPublisher публикует доменные события; доставка best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
