package memory

import (
	"context"
	"net/url"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ImageURLBase — префикс URL изображений, выдаваемых in-memory хранилищем.
const ImageURLBase = "memory://images/"

// ImageStore — in-memory object store для изображений (dev/test).
type ImageStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewImageStore создаёт пустое хранилище изображений.
func NewImageStore() *ImageStore {
	return &ImageStore{objects: make(map[string][]byte)}
}

var _ domain.ImageStore = (*ImageStore)(nil)

// Upload сохраняет файл под его именем; одноимённый объект перезаписывается.
func (s *ImageStore) Upload(_ context.Context, file domain.ImageFile) (string, error) {
	if err := file.ValidateName(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[file.Name] = append([]byte(nil), file.Data...)
	return ImageURLBase + url.PathEscape(file.Name), nil
}

// Delete удаляет объект; отсутствие объекта не ошибка.
func (s *ImageStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// Exists сообщает, хранится ли объект с ключом key.
func (s *ImageStore) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok
}

// Len возвращает число хранимых объектов.
func (s *ImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}
