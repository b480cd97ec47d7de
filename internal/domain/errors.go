package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable — хранилище (KV, SQL, object store) недоступно или отклонило запрос.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound — запрошенная сущность отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)

	// ErrValidation — базовая ошибка валидации входных данных.
	ErrValidation = errors.New("validation failed")
	// Ошибка превышения лимита изображений на товар.
	ErrTooManyImages = fmt.Errorf("%w: a product can have at most %d images", ErrValidation, MaxProductImages)
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = fmt.Errorf("%w: product name is required", ErrValidation)
	// Ошибка отрицательной цены.
	ErrPriceNegative = fmt.Errorf("%w: price must be non-negative", ErrValidation)
	// Ошибка отрицательного остатка.
	ErrStockNegative = fmt.Errorf("%w: stock must be non-negative", ErrValidation)
	// Ошибка отсутствующего email пользователя.
	ErrUserEmailRequired = fmt.Errorf("%w: userEmail is required", ErrValidation)
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = fmt.Errorf("%w: productID is required", ErrValidation)
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	// Ошибка отсутствующего идентификатора продажи.
	ErrSaleIDRequired = fmt.Errorf("%w: saleId is required", ErrValidation)
	// Ошибка отрицательной суммы продажи.
	ErrAmountNegative = fmt.Errorf("%w: totalAmount must be non-negative", ErrValidation)
	// Ошибка пустой корзины при оформлении заказа.
	ErrCartEmpty = fmt.Errorf("%w: cart must contain at least one item", ErrValidation)
	// Ошибка отсутствующего email покупателя при оформлении заказа.
	ErrCustomerEmailRequired = fmt.Errorf("%w: customerEmail is required", ErrValidation)
	// Ошибка отсутствующего имени файла изображения.
	ErrImageNameRequired = fmt.Errorf("%w: image file name is required", ErrValidation)
	// Ошибка имени файла с разделителем пути: ключ объекта должен быть одним сегментом URL.
	ErrImageNameInvalid = fmt.Errorf("%w: image file name must not contain path separators", ErrValidation)
	// Ошибка отсутствующего названия позиции корзины при оформлении.
	ErrItemNameRequired = fmt.Errorf("%w: productName is required", ErrValidation)

	// ErrPaymentProvider — платёжный провайдер отклонил запрос или недоступен.
	ErrPaymentProvider = errors.New("payment provider error")
	// ErrWebhookSignature — подпись вебхука не прошла проверку.
	ErrWebhookSignature = fmt.Errorf("%w: webhook signature verification failed", ErrPaymentProvider)
	// ErrPaymentsDisabled — платёжный провайдер не сконфигурирован.
	ErrPaymentsDisabled = errors.New("payments are not configured")

	// ErrCustomerNotFound — в identity-провайдере нет пользователя с таким email.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerLookup — ошибка обращения к identity-провайдеру.
	ErrCustomerLookup = errors.New("customer lookup failed")

	// ErrPartialCascadeFailure — товар удалён, но часть изображений осталась в object store.
	ErrPartialCascadeFailure = errors.New("product deleted with orphaned images")
)

// IsValidation проверяет, относится ли ошибка к ошибкам валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound проверяет, является ли ошибка отсутствием сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError оборачивает транспортную ошибку хранилища в ErrStoreUnavailable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
