package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/storage"
)

func TestProductListFilters(t *testing.T) {
	store := New()
	ctx := context.Background()

	seed := []product.Product{
		{Name: "Taxi App", Description: "ride hailing", Category: "mobility", Status: product.StatusActive, Price: decimal.NewFromFloat(49.99)},
		{Name: "Food Delivery", Description: "restaurant orders", Category: "food", Status: product.StatusActive, Price: decimal.NewFromFloat(59.99)},
		{Name: "Legacy CRM", Description: "retired", Category: "business", Status: product.StatusInactive, Price: decimal.NewFromFloat(19.99)},
	}
	for _, p := range seed {
		if _, err := store.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}

	items, total, err := store.ListProducts(ctx, storage.ProductFilter{ActiveOnly: true}, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 active products, got total=%d len=%d", total, len(items))
	}

	items, total, err = store.ListProducts(ctx, storage.ProductFilter{Search: "RIDE"}, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].Name != "Taxi App" {
		t.Fatalf("expected case-insensitive description match, got %+v", items)
	}

	items, _, err = store.ListProducts(ctx, storage.ProductFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 product on page 2, got %d", len(items))
	}
}

func TestIncrementDownloadRequiresCompleted(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, status := range []purchase.PaymentStatus{purchase.StatusPending, purchase.StatusFailed, purchase.StatusRefunded} {
		p, err := store.CreatePurchase(ctx, purchase.Purchase{
			TransactionID: "TXN_" + string(status),
			PaymentStatus: status,
			Amount:        decimal.NewFromFloat(10),
		})
		if err != nil {
			t.Fatalf("create %s purchase: %v", status, err)
		}
		if _, err := store.IncrementDownload(ctx, p.TransactionID, p.CreatedAt); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("status %s: expected ErrNotFound, got %v", status, err)
		}
	}
}

func TestIncrementDownloadConcurrent(t *testing.T) {
	store := New()
	ctx := context.Background()

	p, err := store.CreatePurchase(ctx, purchase.Purchase{
		TransactionID: "TXN_concurrent",
		PaymentStatus: purchase.StatusCompleted,
		Amount:        decimal.NewFromFloat(10),
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.IncrementDownload(ctx, p.TransactionID, p.CreatedAt); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetPurchaseByTransaction(ctx, p.TransactionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DownloadCount != workers {
		t.Fatalf("expected %d downloads, got %d", workers, got.DownloadCount)
	}
	if got.LastDownloadAt == nil {
		t.Fatalf("expected last download timestamp to be set")
	}
}

func TestDuplicateTransactionRejected(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreatePurchase(ctx, purchase.Purchase{TransactionID: "TXN_dup", Amount: decimal.Zero}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := store.CreatePurchase(ctx, purchase.Purchase{TransactionID: "TXN_dup", Amount: decimal.Zero}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAggregatesIgnorePagination(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		status := purchase.StatusCompleted
		if i == 4 {
			status = purchase.StatusPending
		}
		_, err := store.CreatePurchase(ctx, purchase.Purchase{
			TransactionID: "TXN_" + string(rune('a'+i)),
			CustomerName:  "Jane Doe",
			PaymentStatus: status,
			Amount:        decimal.NewFromFloat(25.50),
			DownloadCount: 2,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	filter := storage.PurchaseFilter{Search: "jane"}
	items, total, err := store.ListPurchases(ctx, filter, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || total != 5 {
		t.Fatalf("expected page of 2 with total 5, got len=%d total=%d", len(items), total)
	}

	agg, err := store.AggregatePurchases(ctx, filter)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if want := decimal.NewFromFloat(102.00); !agg.TotalRevenue.Equal(want) {
		t.Fatalf("expected revenue %s, got %s", want, agg.TotalRevenue)
	}
	if agg.TotalSales != 4 || agg.TotalDownloads != 8 || agg.PendingCount != 1 {
		t.Fatalf("unexpected aggregates: %+v", agg)
	}
}
