package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/storage"
	"github.com/codemart-io/storefront/internal/app/storage/memory"
)

func TestService_CreateDefaultsAndValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Input{Price: decimal.NewFromFloat(10)}); err == nil {
		t.Fatalf("expected name validation error")
	}
	if _, err := svc.Create(ctx, Input{Name: "App", Price: decimal.NewFromFloat(-1)}); err == nil {
		t.Fatalf("expected negative price rejection")
	}
	if _, err := svc.Create(ctx, Input{Name: "App", Rating: 9}); err == nil {
		t.Fatalf("expected rating rejection")
	}

	created, err := svc.Create(ctx, Input{Name: "  Taxi App  ", Price: decimal.NewFromFloat(49.99)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Taxi App" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.Status != product.StatusActive {
		t.Fatalf("expected default ACTIVE status, got %s", created.Status)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("store fields not stamped: %+v", created)
	}
}

func TestService_UpdatePreservesSales(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "Taxi App", Price: decimal.NewFromFloat(49.99)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.RecordSale(ctx, created.ID)
	svc.RecordSale(ctx, created.ID)

	updated, err := svc.Update(ctx, created.ID, Input{
		Name:   "Taxi App v2",
		Price:  decimal.NewFromFloat(59.99),
		Status: product.StatusInactive,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Sales != 2 {
		t.Fatalf("sales counter lost on update: %d", updated.Sales)
	}
	if updated.Name != "Taxi App v2" || !updated.Price.Equal(decimal.NewFromFloat(59.99)) {
		t.Fatalf("fields not updated: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("creation time rewritten")
	}
}

func TestService_GetAndDelete(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := svc.Create(ctx, Input{Name: "Taxi App", Price: decimal.NewFromFloat(49.99)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestService_RecordSaleSwallowsErrors(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	// Missing product must not panic or propagate.
	svc.RecordSale(context.Background(), "missing")
}
