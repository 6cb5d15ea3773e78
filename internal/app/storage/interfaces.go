// Package storage declares the persistence interfaces consumed by the
// domain services. Implementations live in the memory and postgres
// subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/codemart-io/storefront/internal/app/domain/blogpost"
	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/domain/user"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness constraint,
// such as a duplicate transaction id or user email.
var ErrConflict = errors.New("conflict")

// ProductFilter restricts product listings.
type ProductFilter struct {
	// Category matches exactly when non-empty.
	Category string
	// Search matches name or description, case-insensitive substring.
	Search string
	// ActiveOnly hides INACTIVE products from public callers.
	ActiveOnly bool
}

// PurchaseFilter restricts ledger listings.
type PurchaseFilter struct {
	// Search matches customer name, customer email, transaction id, or the
	// denormalized product name, case-insensitive substring.
	Search string
	// Status restricts to one payment status when non-empty.
	Status purchase.PaymentStatus
}

// ContactFilter restricts contact listings.
type ContactFilter struct {
	Search string
	Status contact.Status
}

// PostFilter restricts blog listings.
type PostFilter struct {
	Search   string
	Category string
	// PublishedOnly hides drafts from public callers.
	PublishedOnly bool
}

// ProductStore persists catalog entries.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	ListProducts(ctx context.Context, f ProductFilter, page, pageSize int) ([]product.Product, int64, error)
	DeleteProduct(ctx context.Context, id string) error

	// IncrementSales bumps the sales counter atomically in a single round
	// trip.
	IncrementSales(ctx context.Context, id string) error
	CountProducts(ctx context.Context, activeOnly bool) (int64, error)
}

// PurchaseStore persists ledger entries.
type PurchaseStore interface {
	// CreatePurchase returns ErrConflict when the transaction id is already
	// taken so the caller can regenerate and retry.
	CreatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error)
	GetPurchase(ctx context.Context, id string) (purchase.Purchase, error)
	GetPurchaseByTransaction(ctx context.Context, transactionID string) (purchase.Purchase, error)
	ListPurchases(ctx context.Context, f PurchaseFilter, page, pageSize int) ([]purchase.Purchase, int64, error)

	// AggregatePurchases computes ledger totals over every row matching the
	// filter, independent of any pagination window.
	AggregatePurchases(ctx context.Context, f PurchaseFilter) (purchase.Aggregates, error)
	SetPaymentStatus(ctx context.Context, id string, status purchase.PaymentStatus) (purchase.Purchase, error)

	// IncrementDownload bumps the download counter and stamps the download
	// time atomically, but only while the purchase is COMPLETED; any other
	// state returns ErrNotFound.
	IncrementDownload(ctx context.Context, transactionID string, at time.Time) (purchase.Purchase, error)
	DeletePurchase(ctx context.Context, id string) error
	RecentCompletedPurchases(ctx context.Context, n int) ([]purchase.Purchase, error)
}

// ContactStore persists contact messages.
type ContactStore interface {
	CreateContact(ctx context.Context, c contact.Contact) (contact.Contact, error)
	GetContact(ctx context.Context, id string) (contact.Contact, error)
	ListContacts(ctx context.Context, f ContactFilter, page, pageSize int) ([]contact.Contact, int64, error)
	SetContactStatus(ctx context.Context, id string, status contact.Status) (contact.Contact, error)
	CountContacts(ctx context.Context, status contact.Status) (int64, error)
	DeleteContact(ctx context.Context, id string) error
	RecentContacts(ctx context.Context, n int) ([]contact.Contact, error)
}

// PostStore persists blog posts.
type PostStore interface {
	CreatePost(ctx context.Context, p blogpost.Post) (blogpost.Post, error)
	UpdatePost(ctx context.Context, p blogpost.Post) (blogpost.Post, error)
	GetPost(ctx context.Context, id string) (blogpost.Post, error)
	ListPosts(ctx context.Context, f PostFilter, page, pageSize int) ([]blogpost.Post, int64, error)
	DeletePost(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// UserStore persists operator accounts.
type UserStore interface {
	// CreateUser returns ErrConflict for a duplicate email.
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}
