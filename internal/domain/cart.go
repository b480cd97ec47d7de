package domain

import (
	"errors"
	"strings"
)

// CartItem — позиция корзины пользователя. Ключ: (UserEmail, ProductID).
type CartItem struct {
	UserEmail   string  `json:"userEmail" dynamodbav:"userEmail"`
	ProductID   string  `json:"productID" dynamodbav:"productID"`
	ProductName string  `json:"productName,omitempty" dynamodbav:"productName,omitempty"`
	Price       float64 `json:"price" dynamodbav:"price"`
	Quantity    int     `json:"quantity" dynamodbav:"quantity"`
	Image       string  `json:"image,omitempty" dynamodbav:"image,omitempty"`
}

// Validate проверяет наличие составного ключа и корректность количества/цены.
func (c *CartItem) Validate() error {
	var errs []error

	if strings.TrimSpace(c.UserEmail) == "" {
		errs = append(errs, ErrUserEmailRequired)
	}
	if strings.TrimSpace(c.ProductID) == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if c.Quantity <= 0 {
		errs = append(errs, ErrQuantityInvalid)
	}
	if c.Price < 0 {
		errs = append(errs, ErrPriceNegative)
	}

	return errors.Join(errs...)
}
