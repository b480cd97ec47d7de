package httpsvc

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Имена полей multipart-формы создания товара.
const (
	formFieldProduct     = "product"
	formFieldImages      = "images"
	formFieldLegacyImage = "image"
)

// deleteProductResponse — ответ на каскадное удаление товара.
type deleteProductResponse struct {
	Message string `json:"message"`
	domain.ProductDeleteResult
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, "list products", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.svc.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, "get product", err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// createProduct принимает multipart-форму (поле product с JSON и до 5 файлов
// images, либо один файл image) или JSON-тело без изображений.
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var product domain.Product
		if err := s.decodeJSON(w, r, &product); err != nil {
			s.writeError(w, r, "create product", err)
			return
		}
		s.saveProduct(w, r, product, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		s.writeError(w, r, "create product", fmt.Errorf("%w: invalid multipart form: %v", domain.ErrValidation, err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.WithError(err).Debug("failed to remove multipart temp files")
		}
	}()

	raw := r.FormValue(formFieldProduct)
	if raw == "" {
		s.writeError(w, r, "create product", fmt.Errorf("%w: form field %q is required", domain.ErrValidation, formFieldProduct))
		return
	}
	var product domain.Product
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		s.writeError(w, r, "create product", fmt.Errorf("%w: invalid product JSON: %v", domain.ErrValidation, err))
		return
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File[formFieldImages]...)
	headers = append(headers, r.MultipartForm.File[formFieldLegacyImage]...)
	if len(headers) > domain.MaxProductImages {
		s.writeError(w, r, "create product", domain.ErrTooManyImages)
		return
	}

	files, err := readImageFiles(headers)
	if err != nil {
		s.writeError(w, r, "create product", err)
		return
	}

	s.saveProduct(w, r, product, files)
}

func (s *Server) saveProduct(w http.ResponseWriter, r *http.Request, product domain.Product, files []domain.ImageFile) {
	created, err := s.svc.Catalog.Create(r.Context(), product, files)
	if err != nil {
		s.writeError(w, r, "create product", err)
		return
	}
	respondJSON(w, http.StatusOK, created)
}

func readImageFiles(headers []*multipart.FileHeader) ([]domain.ImageFile, error) {
	files := make([]domain.ImageFile, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			return nil, fmt.Errorf("%w: read image %q: %v", domain.ErrValidation, h.Filename, err)
		}
		contentType := h.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, domain.ImageFile{
			Name:        h.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return files, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := s.decodeJSON(w, r, &product); err != nil {
		s.writeError(w, r, "update product", err)
		return
	}

	updated, err := s.svc.Catalog.Update(r.Context(), chi.URLParam(r, "id"), product)
	if err != nil {
		s.writeError(w, r, "update product", err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.svc.Catalog.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "delete product", err)
		return
	}

	message := "Product deleted"
	if cascadeErr := result.Err(); cascadeErr != nil {
		message = "Product deleted; some images could not be removed"
		s.logger.WithError(cascadeErr).WithFields(log.Fields{
			"product_id": id,
			"failed":     len(result.FailedImages),
		}).Warn("partial cascade failure")
	}
	result.FailedImages = nonNilFailures(result.FailedImages)

	respondJSON(w, http.StatusOK, deleteProductResponse{
		Message:             message,
		ProductDeleteResult: result,
	})
}

func nonNilFailures(in []domain.ImageDeleteFailure) []domain.ImageDeleteFailure {
	if in == nil {
		return []domain.ImageDeleteFailure{}
	}
	return in
}
