package domain

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// MaxProductImages — верхняя граница числа изображений у одного товара.
const MaxProductImages = 5

// Product описывает карточку товара в каталоге.
// ID неизменяем после первой записи, Price задаётся в основных денежных единицах,
// Images хранит упорядоченный список публичных URL изображений в object store.
type Product struct {
	ID          string            `json:"id" dynamodbav:"id"`
	Name        string            `json:"name" dynamodbav:"name"`
	Description string            `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Price       float64           `json:"price" dynamodbav:"price"`
	Category    string            `json:"category,omitempty" dynamodbav:"category,omitempty"`
	Stock       int               `json:"stock,omitempty" dynamodbav:"stock,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty" dynamodbav:"attributes,omitempty"`
	Images      []string          `json:"images" dynamodbav:"images"`
}

// Validate проверяет базовые инварианты товара.
func (p *Product) Validate() error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}
	if len(p.Images) > MaxProductImages {
		errs = append(errs, ErrTooManyImages)
	}

	return errors.Join(errs...)
}

// Normalize приводит nil-коллекции к пустым, чтобы JSON всегда содержал массив images.
func (p *Product) Normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
}

// ImageKeyFromURL возвращает ключ объекта в object store: последний сегмент пути URL.
func ImageKeyFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if key := path.Base(u.Path); key != "/" && key != "." {
			return key
		}
		return ""
	}
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}

// ImageDeleteFailure описывает изображение, которое не удалось удалить при каскадном удалении.
type ImageDeleteFailure struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ProductDeleteResult — результат каскадного удаления товара.
// Запись товара удаляется всегда; FailedImages перечисляет осиротевшие объекты.
type ProductDeleteResult struct {
	ProductID     string               `json:"productId"`
	Found         bool                 `json:"-"`
	ImagesDeleted int                  `json:"imagesDeleted"`
	FailedImages  []ImageDeleteFailure `json:"failedImages"`
}

// Partial сообщает, остались ли неудалённые изображения.
func (r ProductDeleteResult) Partial() bool {
	return len(r.FailedImages) > 0
}

// Err возвращает ErrPartialCascadeFailure, если часть изображений не удалена.
func (r ProductDeleteResult) Err() error {
	if !r.Partial() {
		return nil
	}
	return fmt.Errorf("%w: product %s, %d image(s) left", ErrPartialCascadeFailure, r.ProductID, len(r.FailedImages))
}

// ImageFile — бинарный файл изображения, загружаемый в object store.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ValidateName проверяет, что имя файла пригодно как ключ объекта:
// ImageKeyFromURL восстанавливает ключ из последнего сегмента пути URL.
func (f ImageFile) ValidateName() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrImageNameRequired
	}
	if strings.ContainsAny(f.Name, `/\`) {
		return ErrImageNameInvalid
	}
	return nil
}
