// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codemart-io/storefront/internal/app/domain/blogpost"
	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/domain/user"
	"github.com/codemart-io/storefront/internal/app/storage"
)

// Store is an in-memory implementation of every storage interface.
type Store struct {
	mu                     sync.RWMutex
	products               map[string]product.Product
	purchases              map[string]purchase.Purchase
	purchasesByTransaction map[string]string
	contacts               map[string]contact.Contact
	posts                  map[string]blogpost.Post
	users                  map[string]user.User
	usersByEmail           map[string]string
}

var _ storage.ProductStore = (*Store)(nil)
var _ storage.PurchaseStore = (*Store)(nil)
var _ storage.ContactStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		products:               make(map[string]product.Product),
		purchases:              make(map[string]purchase.Purchase),
		purchasesByTransaction: make(map[string]string),
		contacts:               make(map[string]contact.Contact),
		posts:                  make(map[string]blogpost.Post),
		users:                  make(map[string]user.User),
		usersByEmail:           make(map[string]string),
	}
}

// ProductStore implementation -------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.products[p.ID]; exists {
		return product.Product{}, storage.ErrConflict
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Screenshots = cloneSlice(p.Screenshots)
	p.Features = cloneSlice(p.Features)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

func (s *Store) UpdateProduct(_ context.Context, p product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.products[p.ID]
	if !ok {
		return product.Product{}, storage.ErrNotFound
	}

	p.Sales = original.Sales
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Screenshots = cloneSlice(p.Screenshots)
	p.Features = cloneSlice(p.Features)

	s.products[p.ID] = p
	return cloneProduct(p), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, storage.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) ListProducts(_ context.Context, f storage.ProductFilter, page, pageSize int) ([]product.Product, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []product.Product
	for _, p := range s.products {
		if f.ActiveOnly && p.Status != product.StatusActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}

	sortNewestFirst(matched, func(p product.Product) (time.Time, string) { return p.CreatedAt, p.ID })
	total := int64(len(matched))
	return pageOf(matched, page, pageSize), total, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) IncrementSales(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Sales++
	s.products[id] = p
	return nil
}

func (s *Store) CountProducts(_ context.Context, activeOnly bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.products {
		if activeOnly && p.Status != product.StatusActive {
			continue
		}
		n++
	}
	return n, nil
}

// PurchaseStore implementation ------------------------------------------------

func (s *Store) CreatePurchase(_ context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.purchasesByTransaction[p.TransactionID]; taken {
		return purchase.Purchase{}, storage.ErrConflict
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.purchases[p.ID]; exists {
		return purchase.Purchase{}, storage.ErrConflict
	}

	p.CreatedAt = time.Now().UTC()

	s.purchases[p.ID] = p
	s.purchasesByTransaction[p.TransactionID] = p.ID
	return clonePurchase(p), nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return purchase.Purchase{}, storage.ErrNotFound
	}
	return clonePurchase(p), nil
}

func (s *Store) GetPurchaseByTransaction(_ context.Context, transactionID string) (purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.purchasesByTransaction[transactionID]
	if !ok {
		return purchase.Purchase{}, storage.ErrNotFound
	}
	return clonePurchase(s.purchases[id]), nil
}

func (s *Store) ListPurchases(_ context.Context, f storage.PurchaseFilter, page, pageSize int) ([]purchase.Purchase, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchPurchasesLocked(f)
	sortNewestFirst(matched, func(p purchase.Purchase) (time.Time, string) { return p.CreatedAt, p.ID })
	total := int64(len(matched))
	return pageOf(matched, page, pageSize), total, nil
}

func (s *Store) AggregatePurchases(_ context.Context, f storage.PurchaseFilter) (purchase.Aggregates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := purchase.Aggregates{TotalRevenue: decimal.Zero}
	for _, p := range s.matchPurchasesLocked(f) {
		switch p.PaymentStatus {
		case purchase.StatusCompleted:
			agg.TotalRevenue = agg.TotalRevenue.Add(p.Amount)
			agg.TotalSales++
			agg.TotalDownloads += p.DownloadCount
		case purchase.StatusPending:
			agg.PendingCount++
		}
	}
	return agg, nil
}

func (s *Store) SetPaymentStatus(_ context.Context, id string, status purchase.PaymentStatus) (purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return purchase.Purchase{}, storage.ErrNotFound
	}
	p.PaymentStatus = status
	s.purchases[id] = p
	return clonePurchase(p), nil
}

func (s *Store) IncrementDownload(_ context.Context, transactionID string, at time.Time) (purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.purchasesByTransaction[transactionID]
	if !ok {
		return purchase.Purchase{}, storage.ErrNotFound
	}
	p := s.purchases[id]
	if p.PaymentStatus != purchase.StatusCompleted {
		return purchase.Purchase{}, storage.ErrNotFound
	}

	at = at.UTC()
	p.DownloadCount++
	p.LastDownloadAt = &at
	s.purchases[id] = p
	return clonePurchase(p), nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.purchases, id)
	delete(s.purchasesByTransaction, p.TransactionID)
	return nil
}

func (s *Store) RecentCompletedPurchases(_ context.Context, n int) ([]purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchPurchasesLocked(storage.PurchaseFilter{Status: purchase.StatusCompleted})
	sortNewestFirst(matched, func(p purchase.Purchase) (time.Time, string) { return p.CreatedAt, p.ID })
	if n > 0 && len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}

func (s *Store) matchPurchasesLocked(f storage.PurchaseFilter) []purchase.Purchase {
	var matched []purchase.Purchase
	for _, p := range s.purchases {
		if f.Status != "" && p.PaymentStatus != f.Status {
			continue
		}
		if f.Search != "" &&
			!containsFold(p.CustomerName, f.Search) &&
			!containsFold(p.CustomerEmail, f.Search) &&
			!containsFold(p.TransactionID, f.Search) &&
			!containsFold(p.ProductName, f.Search) {
			continue
		}
		matched = append(matched, clonePurchase(p))
	}
	return matched
}

// ContactStore implementation -------------------------------------------------

func (s *Store) CreateContact(_ context.Context, c contact.Contact) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = contact.StatusUnread
	}
	c.CreatedAt = time.Now().UTC()

	s.contacts[c.ID] = c
	return c, nil
}

func (s *Store) GetContact(_ context.Context, id string) (contact.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok {
		return contact.Contact{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListContacts(_ context.Context, f storage.ContactFilter, page, pageSize int) ([]contact.Contact, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []contact.Contact
	for _, c := range s.contacts {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Search != "" &&
			!containsFold(c.Name, f.Search) &&
			!containsFold(c.Email, f.Search) &&
			!containsFold(c.Message, f.Search) {
			continue
		}
		matched = append(matched, c)
	}

	sortNewestFirst(matched, func(c contact.Contact) (time.Time, string) { return c.CreatedAt, c.ID })
	total := int64(len(matched))
	return pageOf(matched, page, pageSize), total, nil
}

func (s *Store) SetContactStatus(_ context.Context, id string, status contact.Status) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok {
		return contact.Contact{}, storage.ErrNotFound
	}
	c.Status = status
	s.contacts[id] = c
	return c, nil
}

func (s *Store) CountContacts(_ context.Context, status contact.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.contacts {
		if status != "" && c.Status != status {
			continue
		}
		n++
	}
	return n, nil
}

func (s *Store) DeleteContact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *Store) RecentContacts(_ context.Context, n int) ([]contact.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]contact.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		matched = append(matched, c)
	}
	sortNewestFirst(matched, func(c contact.Contact) (time.Time, string) { return c.CreatedAt, c.ID })
	if n > 0 && len(matched) > n {
		matched = matched[:n]
	}
	return matched, nil
}

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p blogpost.Post) (blogpost.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePost(_ context.Context, p blogpost.Post) (blogpost.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.posts[p.ID]
	if !ok {
		return blogpost.Post{}, storage.ErrNotFound
	}

	p.AuthorID = original.AuthorID
	p.AuthorName = original.AuthorName
	p.Views = original.Views
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) GetPost(_ context.Context, id string) (blogpost.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return blogpost.Post{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPosts(_ context.Context, f storage.PostFilter, page, pageSize int) ([]blogpost.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []blogpost.Post
	for _, p := range s.posts {
		if f.PublishedOnly && p.Status != blogpost.StatusPublished {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" &&
			!containsFold(p.Title, f.Search) &&
			!containsFold(p.Excerpt, f.Search) &&
			!containsFold(p.Category, f.Search) {
			continue
		}
		matched = append(matched, p)
	}

	sortNewestFirst(matched, func(p blogpost.Post) (time.Time, string) { return p.CreatedAt, p.ID })
	total := int64(len(matched))
	return pageOf(matched, page, pageSize), total, nil
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Views++
	s.posts[id] = p
	return nil
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.usersByEmail[email]; taken {
		return user.User{}, storage.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// helpers ---------------------------------------------------------------------

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}

func pageOf[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return items
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cloneSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneProduct(p product.Product) product.Product {
	p.Screenshots = cloneSlice(p.Screenshots)
	p.Features = cloneSlice(p.Features)
	return p
}

func clonePurchase(p purchase.Purchase) purchase.Purchase {
	if p.LastDownloadAt != nil {
		t := *p.LastDownloadAt
		p.LastDownloadAt = &t
	}
	return p
}
