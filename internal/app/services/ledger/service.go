package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/metrics"
	"github.com/codemart-io/storefront/internal/app/services/catalog"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

// createAttempts bounds transaction id regeneration when the store reports a
// collision. Collisions require two ids sharing both millisecond and 8 random
// bytes, so a second attempt all but guarantees success.
const createAttempts = 3

// Service records purchases and owns their payment lifecycle.
type Service struct {
	store        storage.PurchaseStore
	products     storage.ProductStore
	catalog      *catalog.Service
	autoComplete bool
	log          *logger.Logger

	now func() time.Time
}

// New creates a configured ledger service. When autoComplete is set, new
// purchases are recorded as COMPLETED immediately instead of waiting for a
// payment confirmation.
func New(store storage.PurchaseStore, products storage.ProductStore, cat *catalog.Service, autoComplete bool, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		store:        store,
		products:     products,
		catalog:      cat,
		autoComplete: autoComplete,
		log:          log,
		now:          time.Now,
	}
}

// Input carries the customer-supplied fields of a new purchase.
type Input struct {
	ProductID     string
	CustomerName  string
	CustomerEmail string
	Amount        decimal.Decimal
	IPAddress     string
}

// Create validates the order against the catalog and records it with a fresh
// transaction id. The product name and price are snapshotted onto the purchase
// so later catalog edits never rewrite order history.
func (s *Service) Create(ctx context.Context, in Input) (purchase.Purchase, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)

	if in.ProductID == "" {
		return purchase.Purchase{}, apperrors.Validation("productId is required")
	}
	if in.CustomerName == "" {
		return purchase.Purchase{}, apperrors.Validation("customerName is required")
	}
	if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		return purchase.Purchase{}, apperrors.Validation("customerEmail is invalid")
	}

	// The catalog status gates discovery, not sale. A direct order against a
	// hidden product still goes through as long as the price matches.
	prod, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return purchase.Purchase{}, fmt.Errorf("product %s not found: %w", in.ProductID, err)
		}
		return purchase.Purchase{}, err
	}
	if !in.Amount.Equal(prod.Price) {
		return purchase.Purchase{}, apperrors.Validation("amount %s does not match product price %s", in.Amount, prod.Price)
	}

	status := purchase.StatusPending
	if s.autoComplete {
		status = purchase.StatusCompleted
	}

	var created purchase.Purchase
	for attempt := 0; attempt < createAttempts; attempt++ {
		txID, err := s.newTransactionID()
		if err != nil {
			return purchase.Purchase{}, err
		}
		created, err = s.store.CreatePurchase(ctx, purchase.Purchase{
			ProductID:     prod.ID,
			ProductName:   prod.Name,
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			Amount:        prod.Price,
			TransactionID: txID,
			PaymentStatus: status,
			IPAddress:     in.IPAddress,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrConflict) {
			return purchase.Purchase{}, err
		}
		if attempt == createAttempts-1 {
			return purchase.Purchase{}, fmt.Errorf("could not allocate a unique transaction id: %w", err)
		}
	}

	if created.PaymentStatus == purchase.StatusCompleted && s.catalog != nil {
		s.catalog.RecordSale(ctx, created.ProductID)
	}
	metrics.RecordPurchase(string(created.PaymentStatus))
	s.log.WithField("transaction_id", created.TransactionID).
		WithField("product_id", created.ProductID).
		Infof("purchase recorded with status %s", created.PaymentStatus)
	return created, nil
}

// SetPaymentStatus moves a purchase to the given payment status. Transitioning
// into COMPLETED also bumps the product's sales counter.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, status purchase.PaymentStatus) (purchase.Purchase, error) {
	if strings.TrimSpace(id) == "" {
		return purchase.Purchase{}, apperrors.Validation("purchase id is required")
	}
	if !status.Valid() {
		return purchase.Purchase{}, apperrors.Validation("unsupported payment status %s", status)
	}

	prev, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return purchase.Purchase{}, err
	}

	updated, err := s.store.SetPaymentStatus(ctx, id, status)
	if err != nil {
		return purchase.Purchase{}, err
	}
	if status == purchase.StatusCompleted && prev.PaymentStatus != purchase.StatusCompleted && s.catalog != nil {
		s.catalog.RecordSale(ctx, updated.ProductID)
	}
	s.log.WithField("purchase_id", id).Infof("payment status %s -> %s", prev.PaymentStatus, status)
	return updated, nil
}

// Get fetches a purchase by id.
func (s *Service) Get(ctx context.Context, id string) (purchase.Purchase, error) {
	if strings.TrimSpace(id) == "" {
		return purchase.Purchase{}, apperrors.Validation("purchase id is required")
	}
	return s.store.GetPurchase(ctx, id)
}

// GetByTransaction fetches a purchase by its public transaction id.
func (s *Service) GetByTransaction(ctx context.Context, transactionID string) (purchase.Purchase, error) {
	if strings.TrimSpace(transactionID) == "" {
		return purchase.Purchase{}, apperrors.Validation("transaction id is required")
	}
	return s.store.GetPurchaseByTransaction(ctx, transactionID)
}

// List returns a page of purchases plus aggregates computed over every row
// matching the filter, not just the returned page.
func (s *Service) List(ctx context.Context, filter storage.PurchaseFilter, page, pageSize int) ([]purchase.Purchase, int64, purchase.Aggregates, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, purchase.Aggregates{}, apperrors.Validation("unsupported payment status %s", filter.Status)
	}
	items, total, err := s.store.ListPurchases(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, purchase.Aggregates{}, err
	}
	agg, err := s.store.AggregatePurchases(ctx, filter)
	if err != nil {
		return nil, 0, purchase.Aggregates{}, err
	}
	return items, total, agg, nil
}

// Delete removes a purchase record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("purchase id is required")
	}
	if err := s.store.DeletePurchase(ctx, id); err != nil {
		return err
	}
	s.log.WithField("purchase_id", id).Infof("purchase deleted")
	return nil
}

// newTransactionID builds ids of the form TXN_<unix-ms>_<16 hex chars>. The
// random suffix comes from crypto/rand so ids cannot be guessed from the
// timestamp alone.
func (s *Service) newTransactionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return fmt.Sprintf("TXN_%d_%s", s.now().UnixMilli(), hex.EncodeToString(buf)), nil
}
