package domain

import (
	"errors"
	"strings"
)

// CheckoutItem — позиция корзины, передаваемая при оформлении заказа.
type CheckoutItem struct {
	ProductID   string  `json:"productID,omitempty"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	Image       string  `json:"image,omitempty"`
}

// CheckoutRequest — запрос на создание checkout-сессии.
type CheckoutRequest struct {
	CartItems     []CheckoutItem   `json:"cartItems"`
	CustomerEmail string           `json:"customerEmail"`
	Shipping      *ShippingAddress `json:"shipping,omitempty"`
	// Total передаётся клиентом справочно и сервером не используется.
	Total float64 `json:"total,omitempty"`
}

// Validate проверяет корзину и email покупателя.
func (r *CheckoutRequest) Validate() error {
	var errs []error

	if len(r.CartItems) == 0 {
		errs = append(errs, ErrCartEmpty)
	}
	if strings.TrimSpace(r.CustomerEmail) == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}
	for _, item := range r.CartItems {
		if strings.TrimSpace(item.ProductName) == "" {
			errs = append(errs, ErrItemNameRequired)
			break
		}
	}
	for _, item := range r.CartItems {
		if item.Price < 0 {
			errs = append(errs, ErrPriceNegative)
			break
		}
	}
	for _, item := range r.CartItems {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
			break
		}
	}

	return errors.Join(errs...)
}

// CheckoutSession — ответ клиенту после создания сессии у платёжного провайдера.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutLineItem — позиция сессии с ценой в минорных единицах (с налогом).
type CheckoutLineItem struct {
	Name            string
	Image           string
	UnitAmountMinor int64
	Quantity        int64
}

// DeliveryEstimate — срок доставки в рабочих днях.
type DeliveryEstimate struct {
	MinBusinessDays int64
	MaxBusinessDays int64
}

// ShippingOption — фиксированный тариф доставки.
type ShippingOption struct {
	DisplayName string
	AmountMinor int64
	Estimate    DeliveryEstimate
}

// CheckoutSessionParams — провайдеро-независимое описание создаваемой сессии.
// Ровно одно из CustomerID / CustomerEmail задаёт вариант сессии.
type CheckoutSessionParams struct {
	Currency         string
	LineItems        []CheckoutLineItem
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
	CustomerID       string
	CustomerEmail    string
	ShippingOptions  []ShippingOption
	Metadata         map[string]string
}

// Customer — профиль покупателя из identity-провайдера.
type Customer struct {
	Email   string
	Name    string
	Address *ShippingAddress
}

// PaymentEventCheckoutCompleted — тип события об оплаченной checkout-сессии.
const PaymentEventCheckoutCompleted = "checkout.session.completed"

// PaymentEvent — проверенное событие вебхука платёжного провайдера.
type PaymentEvent struct {
	ID   string
	Type string
	// Session заполнен только для checkout.session.completed.
	Session *CompletedSession
}

// CompletedSession — данные завершённой checkout-сессии.
type CompletedSession struct {
	ID               string
	CustomerEmail    string
	AmountTotalMinor int64
	Currency         string
	Shipping         *ShippingAddress
}

// SessionLineItem — позиция оплаченной сессии.
type SessionLineItem struct {
	Description      string
	Quantity         int64
	AmountTotalMinor int64
}
