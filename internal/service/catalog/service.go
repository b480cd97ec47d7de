package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Service управляет каталогом товаров и их изображениями.
type Service struct {
	products domain.ProductRepository
	images   domain.ImageStore
	events   domain.EventPublisher
	metrics  *metrics.StorefrontMetrics
	logger   *log.Entry
	newID    func() string
	now      func() time.Time
}

// NewService создаёт сервис каталога. events и m могут быть nil.
func NewService(
	products domain.ProductRepository,
	images domain.ImageStore,
	events domain.EventPublisher,
	m *metrics.StorefrontMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products: products,
		images:   images,
		events:   events,
		metrics:  m,
		logger:   logger,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List возвращает все товары.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Normalize()
	}
	return products, nil
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product.Normalize()
	return product, nil
}

// Create загружает изображения и сохраняет товар. Если переданы файлы,
// список images товара заменяется их URL в порядке файлов.
func (s *Service) Create(ctx context.Context, product domain.Product, files []domain.ImageFile) (domain.Product, error) {
	if len(files) > domain.MaxProductImages {
		return domain.Product{}, domain.ErrTooManyImages
	}
	for _, f := range files {
		if err := f.ValidateName(); err != nil {
			return domain.Product{}, err
		}
	}
	if strings.TrimSpace(product.ID) == "" {
		product.ID = s.newID()
	}
	if len(files) > 0 {
		// images из тела будут заменены URL загруженных файлов.
		product.Images = nil
	}
	product.Normalize()
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}

	if len(files) > 0 {
		urls, err := s.uploadAll(ctx, files)
		if err != nil {
			return domain.Product{}, err
		}
		product.Images = urls
	}

	if err := s.products.Upsert(ctx, product); err != nil {
		if len(files) > 0 {
			s.cleanup(ctx, product.Images)
		}
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"images":     len(product.Images),
	}).Info("product created")
	return product, nil
}

// Update полностью заменяет запись товара с идентификатором id.
func (s *Service) Update(ctx context.Context, id string, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, domain.ErrProductIDRequired
	}
	product.ID = id
	product.Normalize()
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Upsert(ctx, product); err != nil {
		return domain.Product{}, err
	}

	s.logger.WithField("product_id", id).Info("product updated")
	return product, nil
}

// Delete удаляет товар и каскадно его изображения. Запись товара удаляется
// независимо от результата удаления изображений.
func (s *Service) Delete(ctx context.Context, id string) (domain.ProductDeleteResult, error) {
	result := domain.ProductDeleteResult{ProductID: id, FailedImages: []domain.ImageDeleteFailure{}}

	product, err := s.products.Get(ctx, id)
	switch {
	case err == nil:
		result.Found = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return result, err
	}

	for _, imageURL := range product.Images {
		key := domain.ImageKeyFromURL(imageURL)
		if key == "" {
			result.FailedImages = append(result.FailedImages, domain.ImageDeleteFailure{
				URL:    imageURL,
				Reason: "cannot derive object key from url",
			})
			continue
		}
		if err := s.images.Delete(ctx, key); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"product_id": id,
				"key":        key,
			}).Warn("failed to delete product image")
			result.FailedImages = append(result.FailedImages, domain.ImageDeleteFailure{
				URL:    imageURL,
				Key:    key,
				Reason: err.Error(),
			})
			continue
		}
		result.ImagesDeleted++
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return result, err
	}

	if result.Found {
		s.publish(ctx, domain.EventProductDeleted, id, result)
	}
	if result.Partial() {
		s.metrics.RecordImageCascadeFailures(len(result.FailedImages))
		s.publish(ctx, domain.EventProductImagesOrphaned, id, result.FailedImages)
		s.logger.WithFields(log.Fields{
			"product_id": id,
			"failed":     len(result.FailedImages),
		}).Warn("product deleted with orphaned images")
	}

	return result, nil
}

// uploadAll загружает файлы параллельно, сохраняя порядок URL.
// При ошибке уже загруженные объекты удаляются.
func (s *Service) uploadAll(ctx context.Context, files []domain.ImageFile) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			url, err := s.images.Upload(gctx, file)
			if err != nil {
				s.metrics.RecordImageUpload(metrics.OutcomeFailure)
				return fmt.Errorf("upload %s: %w", file.Name, err)
			}
			s.metrics.RecordImageUpload(metrics.OutcomeSuccess)
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.cleanup(ctx, urls)
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, domain.StoreError("upload images", err)
	}
	return urls, nil
}

// cleanup удаляет загруженные объекты best-effort.
func (s *Service) cleanup(ctx context.Context, urls []string) {
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		key := domain.ImageKeyFromURL(u)
		if key == "" {
			continue
		}
		if err := s.images.Delete(ctx, key); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("failed to clean up uploaded image")
		}
	}
}

func (s *Service) publish(ctx context.Context, eventType, aggregateID string, payload any) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, domain.Event{
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  s.now(),
	})
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type":   eventType,
			"aggregate_id": aggregateID,
		}).Warn("failed to publish domain event")
	}
}
