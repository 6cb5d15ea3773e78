package entitlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/metrics"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

// Grant is what a successful entitlement check hands back: the download
// location plus the snapshot the customer bought under.
type Grant struct {
	TransactionID string          `json:"transactionId"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	CustomerName  string          `json:"customerName"`
	Amount        decimal.Decimal `json:"amount"`
	DownloadURL   string          `json:"downloadUrl,omitempty"`
	Downloads     int64           `json:"downloadCount"`
	LastDownload  *time.Time      `json:"lastDownloadAt,omitempty"`
	PurchasedAt   time.Time       `json:"purchasedAt"`
}

// Service answers whether a transaction id is entitled to a download.
type Service struct {
	purchases storage.PurchaseStore
	products  storage.ProductStore
	log       *logger.Logger

	now func() time.Time
}

// New creates a configured entitlement service.
func New(purchases storage.PurchaseStore, products storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("entitlement")
	}
	return &Service{purchases: purchases, products: products, log: log, now: time.Now}
}

// Resolve checks whether the transaction id is entitled to a download. Any
// transaction that is not currently COMPLETED resolves to ErrNotFound, whether
// it is pending, failed, refunded, or simply unknown. Callers learn nothing
// about which of those it was. Resolving does not count a delivery.
func (s *Service) Resolve(ctx context.Context, transactionID string) (Grant, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return Grant{}, apperrors.Validation("transaction id is required")
	}

	p, err := s.purchases.GetPurchaseByTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordEntitlementDenied()
		}
		return Grant{}, err
	}
	if p.PaymentStatus != purchase.StatusCompleted {
		metrics.RecordEntitlementDenied()
		s.log.WithField("transaction_id", transactionID).Infof("entitlement refused")
		return Grant{}, storage.ErrNotFound
	}
	return s.grantFor(ctx, p), nil
}

// RecordDownload grants a download under the same COMPLETED-only predicate and
// atomically counts the delivery. Repeated calls keep counting; a customer may
// re-download as often as they like.
func (s *Service) RecordDownload(ctx context.Context, transactionID string) (Grant, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return Grant{}, apperrors.Validation("transaction id is required")
	}

	p, err := s.purchases.IncrementDownload(ctx, transactionID, s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordEntitlementDenied()
			s.log.WithField("transaction_id", transactionID).Infof("download refused")
		}
		return Grant{}, err
	}

	metrics.RecordDownload()
	s.log.WithField("transaction_id", transactionID).
		WithField("downloads", p.DownloadCount).
		Infof("download granted")
	return s.grantFor(ctx, p), nil
}

// grantFor attaches the current download location from the catalog. A product
// deleted after purchase still yields a grant, just without a live link.
func (s *Service) grantFor(ctx context.Context, p purchase.Purchase) Grant {
	g := Grant{
		TransactionID: p.TransactionID,
		ProductID:     p.ProductID,
		ProductName:   p.ProductName,
		CustomerName:  p.CustomerName,
		Amount:        p.Amount,
		Downloads:     p.DownloadCount,
		LastDownload:  p.LastDownloadAt,
		PurchasedAt:   p.CreatedAt,
	}
	if prod, err := s.products.GetProduct(ctx, p.ProductID); err == nil {
		g.DownloadURL = prod.DownloadURL
	}
	return g
}
