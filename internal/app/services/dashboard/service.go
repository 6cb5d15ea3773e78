package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/storage"
	"github.com/codemart-io/storefront/pkg/logger"
)

const (
	recentSalesWindow    = 5
	recentContactsWindow = 3
)

// Stats is the read-only snapshot served to the admin dashboard.
type Stats struct {
	TotalRevenue   decimal.Decimal     `json:"totalRevenue"`
	TotalSales     int64               `json:"totalSales"`
	TotalDownloads int64               `json:"totalDownloads"`
	PendingOrders  int64               `json:"pendingOrders"`
	TotalProducts  int64               `json:"totalProducts"`
	ActiveProducts int64               `json:"activeProducts"`
	UnreadContacts int64               `json:"unreadContacts"`
	RecentSales    []purchase.Purchase `json:"recentSales"`
	RecentContacts []contact.Contact   `json:"recentContacts"`
}

// Service aggregates stats across the other stores. It never writes.
type Service struct {
	products  storage.ProductStore
	purchases storage.PurchaseStore
	contacts  storage.ContactStore
	log       *logger.Logger
}

// New creates a configured dashboard service.
func New(products storage.ProductStore, purchases storage.PurchaseStore, contacts storage.ContactStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	return &Service{products: products, purchases: purchases, contacts: contacts, log: log}
}

// Snapshot assembles the dashboard stats. Aggregates are computed over the
// whole ledger, never a pagination window.
func (s *Service) Snapshot(ctx context.Context) (Stats, error) {
	agg, err := s.purchases.AggregatePurchases(ctx, storage.PurchaseFilter{})
	if err != nil {
		return Stats{}, err
	}

	totalProducts, err := s.products.CountProducts(ctx, false)
	if err != nil {
		return Stats{}, err
	}
	activeProducts, err := s.products.CountProducts(ctx, true)
	if err != nil {
		return Stats{}, err
	}

	unread, err := s.contacts.CountContacts(ctx, contact.StatusUnread)
	if err != nil {
		return Stats{}, err
	}

	recentSales, err := s.purchases.RecentCompletedPurchases(ctx, recentSalesWindow)
	if err != nil {
		return Stats{}, err
	}
	recentContacts, err := s.contacts.RecentContacts(ctx, recentContactsWindow)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		TotalRevenue:   agg.TotalRevenue,
		TotalSales:     agg.TotalSales,
		TotalDownloads: agg.TotalDownloads,
		PendingOrders:  agg.PendingCount,
		TotalProducts:  totalProducts,
		ActiveProducts: activeProducts,
		UnreadContacts: unread,
		RecentSales:    recentSales,
		RecentContacts: recentContacts,
	}, nil
}
