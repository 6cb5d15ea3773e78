package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

// Service manages the product catalog.
type Service struct {
	store storage.ProductStore
	log   *logger.Logger
}

// New creates a configured catalog service.
func New(store storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// Input carries the writable fields of a product.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Status      product.Status
	Image       string
	Screenshots []string
	Features    []string
	DownloadURL string
	Rating      float64
}

func (in *Input) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return apperrors.Validation("name is required")
	}
	if in.Price.IsNegative() {
		return apperrors.Validation("price must not be negative")
	}
	if in.Status == "" {
		in.Status = product.StatusActive
	}
	if !in.Status.Valid() {
		return apperrors.Validation("unsupported status %s", in.Status)
	}
	if in.Rating < 0 || in.Rating > 5 {
		return apperrors.Validation("rating must be between 0 and 5")
	}
	return nil
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, in Input) (product.Product, error) {
	if err := in.validate(); err != nil {
		return product.Product{}, err
	}
	created, err := s.store.CreateProduct(ctx, product.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Status:      in.Status,
		Image:       in.Image,
		Screenshots: in.Screenshots,
		Features:    in.Features,
		DownloadURL: in.DownloadURL,
		Rating:      in.Rating,
	})
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", created.ID).Infof("product created: %s", created.Name)
	return created, nil
}

// Update replaces the writable fields of an existing product. Sales counters
// and creation time are preserved by the store.
func (s *Service) Update(ctx context.Context, id string, in Input) (product.Product, error) {
	if strings.TrimSpace(id) == "" {
		return product.Product{}, apperrors.Validation("product id is required")
	}
	if err := in.validate(); err != nil {
		return product.Product{}, err
	}
	updated, err := s.store.UpdateProduct(ctx, product.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Status:      in.Status,
		Image:       in.Image,
		Screenshots: in.Screenshots,
		Features:    in.Features,
		DownloadURL: in.DownloadURL,
		Rating:      in.Rating,
	})
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", id).Infof("product updated")
	return updated, nil
}

// Get fetches a single product by id.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	if strings.TrimSpace(id) == "" {
		return product.Product{}, apperrors.Validation("product id is required")
	}
	return s.store.GetProduct(ctx, id)
}

// List returns a page of products matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, filter storage.ProductFilter, page, pageSize int) ([]product.Product, int64, error) {
	return s.store.ListProducts(ctx, filter, page, pageSize)
}

// Delete removes a product. Recorded purchases keep their own snapshot of the
// product name and price, so historical orders survive the deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("product id is required")
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.WithField("product_id", id).Infof("product deleted")
	return nil
}

// RecordSale bumps the sales counter. Failures are logged rather than
// propagated so a completed payment never rolls back over bookkeeping.
func (s *Service) RecordSale(ctx context.Context, id string) {
	if err := s.store.IncrementSales(ctx, id); err != nil {
		s.log.WithError(err).WithField("product_id", id).Warnf("sales counter not updated")
	}
}
