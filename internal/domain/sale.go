package domain

import (
	"errors"
	"strings"
	"time"
)

// PaymentStatusPaid — статус оплаченной продажи, подтверждённой вебхуком.
const PaymentStatusPaid = "paid"

// SaleProduct — позиция проданного товара.
type SaleProduct struct {
	ProductName string  `json:"productName" dynamodbav:"productName"`
	Quantity    int64   `json:"quantity" dynamodbav:"quantity"`
	Price       float64 `json:"price" dynamodbav:"price"`
}

// ShippingAddress — адрес доставки покупателя.
type ShippingAddress struct {
	Name       string `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Line1      string `json:"line1,omitempty" dynamodbav:"line1,omitempty"`
	Line2      string `json:"line2,omitempty" dynamodbav:"line2,omitempty"`
	City       string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State      string `json:"state,omitempty" dynamodbav:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty" dynamodbav:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" dynamodbav:"country,omitempty"`
}

// IsZero сообщает, что адрес не заполнен.
func (a *ShippingAddress) IsZero() bool {
	return a == nil || *a == ShippingAddress{}
}

// Sale — запись журнала продаж.
type Sale struct {
	SaleID          string           `json:"saleId" dynamodbav:"saleId"`
	UserEmail       string           `json:"userEmail" dynamodbav:"userEmail"`
	TotalAmount     float64          `json:"totalAmount" dynamodbav:"totalAmount"`
	Currency        string           `json:"currency" dynamodbav:"currency"`
	PaymentStatus   string           `json:"paymentStatus" dynamodbav:"paymentStatus"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty" dynamodbav:"shippingAddress,omitempty"`
	Timestamp       time.Time        `json:"timestamp" dynamodbav:"timestamp"`
	Products        []SaleProduct    `json:"products" dynamodbav:"products"`
	// CheckoutSessionID заполняется для продаж, созданных вебхуком.
	CheckoutSessionID string `json:"checkoutSessionId,omitempty" dynamodbav:"checkoutSessionId,omitempty"`
}

// Validate проверяет инварианты продажи перед записью.
func (s *Sale) Validate() error {
	var errs []error

	if strings.TrimSpace(s.SaleID) == "" {
		errs = append(errs, ErrSaleIDRequired)
	}
	if strings.TrimSpace(s.UserEmail) == "" {
		errs = append(errs, ErrUserEmailRequired)
	}
	if s.TotalAmount < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	for _, p := range s.Products {
		if p.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
			break
		}
	}

	return errors.Join(errs...)
}

// Normalize приводит nil-коллекции к пустым.
func (s *Sale) Normalize() {
	if s.Products == nil {
		s.Products = []SaleProduct{}
	}
}
