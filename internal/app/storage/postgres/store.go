// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/codemart-io/storefront/internal/app/domain/blogpost"
	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/domain/user"
	"github.com/codemart-io/storefront/internal/app/storage"
)

// Store implements the storage interfaces using a PostgreSQL database.
type Store struct {
	db *sql.DB
}

var _ storage.ProductStore = (*Store)(nil)
var _ storage.PurchaseStore = (*Store)(nil)
var _ storage.ContactStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- ProductStore -----------------------------------------------------------

const productColumns = `id, name, description, price, category, status, image, screenshots, features, download_url, sales, rating, created_at, updated_at`

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	screenshotsJSON, err := json.Marshal(p.Screenshots)
	if err != nil {
		return product.Product{}, err
	}
	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return product.Product{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_products (id, name, description, price, category, status, image, screenshots, features, download_url, sales, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Status, p.Image, screenshotsJSON, featuresJSON, p.DownloadURL, p.Sales, p.Rating, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return product.Product{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	existing, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		return product.Product{}, err
	}

	p.Sales = existing.Sales
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	screenshotsJSON, err := json.Marshal(p.Screenshots)
	if err != nil {
		return product.Product{}, err
	}
	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return product.Product{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE store_products
		SET name = $2, description = $3, price = $4, category = $5, status = $6, image = $7, screenshots = $8, features = $9, download_url = $10, rating = $11, updated_at = $12
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Status, p.Image, screenshotsJSON, featuresJSON, p.DownloadURL, p.Rating, p.UpdatedAt)
	if err != nil {
		return product.Product{}, translateErr(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return product.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM store_products
		WHERE id = $1
	`, id)
	return scanProduct(row)
}

func (s *Store) ListProducts(ctx context.Context, f storage.ProductFilter, page, pageSize int) ([]product.Product, int64, error) {
	where := `($1 = '' OR category = $1)
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		AND (NOT $3 OR status = 'ACTIVE')`

	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_products WHERE `+where,
		f.Category, f.Search, f.ActiveOnly).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM store_products
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, f.Category, f.Search, f.ActiveOnly, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_products WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementSales(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_products SET sales = sales + 1 WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountProducts(ctx context.Context, activeOnly bool) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_products WHERE NOT $1 OR status = 'ACTIVE'
	`, activeOnly).Scan(&n)
	return n, err
}

// --- PurchaseStore ----------------------------------------------------------

const purchaseColumns = `id, product_id, product_name, customer_name, customer_email, amount, transaction_id, payment_status, download_count, last_download_at, ip_address, created_at`

const purchaseWhere = `($1 = '' OR customer_name ILIKE '%' || $1 || '%' OR customer_email ILIKE '%' || $1 || '%' OR transaction_id ILIKE '%' || $1 || '%' OR product_name ILIKE '%' || $1 || '%')
	AND ($2 = '' OR payment_status = $2)`

func (s *Store) CreatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_purchases (id, product_id, product_name, customer_name, customer_email, amount, transaction_id, payment_status, download_count, last_download_at, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.ProductID, p.ProductName, p.CustomerName, p.CustomerEmail, p.Amount, p.TransactionID, p.PaymentStatus, p.DownloadCount, toNullTime(p.LastDownloadAt), p.IPAddress, p.CreatedAt)
	if err != nil {
		return purchase.Purchase{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (purchase.Purchase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM store_purchases
		WHERE id = $1
	`, id)
	return scanPurchase(row)
}

func (s *Store) GetPurchaseByTransaction(ctx context.Context, transactionID string) (purchase.Purchase, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM store_purchases
		WHERE transaction_id = $1
	`, transactionID)
	return scanPurchase(row)
}

func (s *Store) ListPurchases(ctx context.Context, f storage.PurchaseFilter, page, pageSize int) ([]purchase.Purchase, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_purchases WHERE `+purchaseWhere,
		f.Search, string(f.Status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM store_purchases
		WHERE `+purchaseWhere+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.Search, string(f.Status), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []purchase.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (s *Store) AggregatePurchases(ctx context.Context, f storage.PurchaseFilter) (purchase.Aggregates, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE payment_status = 'COMPLETED'), 0),
			COUNT(*) FILTER (WHERE payment_status = 'COMPLETED'),
			COALESCE(SUM(download_count) FILTER (WHERE payment_status = 'COMPLETED'), 0),
			COUNT(*) FILTER (WHERE payment_status = 'PENDING')
		FROM store_purchases
		WHERE `+purchaseWhere,
		f.Search, string(f.Status))

	var agg purchase.Aggregates
	if err := row.Scan(&agg.TotalRevenue, &agg.TotalSales, &agg.TotalDownloads, &agg.PendingCount); err != nil {
		return purchase.Aggregates{}, err
	}
	return agg, nil
}

func (s *Store) SetPaymentStatus(ctx context.Context, id string, status purchase.PaymentStatus) (purchase.Purchase, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_purchases SET payment_status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return purchase.Purchase{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return purchase.Purchase{}, storage.ErrNotFound
	}
	return s.GetPurchase(ctx, id)
}

func (s *Store) IncrementDownload(ctx context.Context, transactionID string, at time.Time) (purchase.Purchase, error) {
	// Single-statement increment so concurrent downloads are never
	// undercounted.
	row := s.db.QueryRowContext(ctx, `
		UPDATE store_purchases
		SET download_count = download_count + 1, last_download_at = $2
		WHERE transaction_id = $1 AND payment_status = 'COMPLETED'
		RETURNING `+purchaseColumns,
		transactionID, at.UTC())
	return scanPurchase(row)
}

func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_purchases WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) RecentCompletedPurchases(ctx context.Context, n int) ([]purchase.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM store_purchases
		WHERE payment_status = 'COMPLETED'
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []purchase.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- ContactStore -----------------------------------------------------------

const contactColumns = `id, name, email, message, status, ip_address, created_at`

const contactWhere = `($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%' OR message ILIKE '%' || $1 || '%')
	AND ($2 = '' OR status = $2)`

func (s *Store) CreateContact(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = contact.StatusUnread
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_contacts (id, name, email, message, status, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, c.Email, c.Message, c.Status, c.IPAddress, c.CreatedAt)
	if err != nil {
		return contact.Contact{}, translateErr(err)
	}
	return c, nil
}

func (s *Store) GetContact(ctx context.Context, id string) (contact.Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM store_contacts
		WHERE id = $1
	`, id)
	return scanContact(row)
}

func (s *Store) ListContacts(ctx context.Context, f storage.ContactFilter, page, pageSize int) ([]contact.Contact, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_contacts WHERE `+contactWhere,
		f.Search, string(f.Status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM store_contacts
		WHERE `+contactWhere+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.Search, string(f.Status), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []contact.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

func (s *Store) SetContactStatus(ctx context.Context, id string, status contact.Status) (contact.Contact, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_contacts SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return contact.Contact{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return contact.Contact{}, storage.ErrNotFound
	}
	return s.GetContact(ctx, id)
}

func (s *Store) CountContacts(ctx context.Context, status contact.Status) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_contacts WHERE $1 = '' OR status = $1
	`, string(status)).Scan(&n)
	return n, err
}

func (s *Store) DeleteContact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_contacts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) RecentContacts(ctx context.Context, n int) ([]contact.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+`
		FROM store_contacts
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contact.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- PostStore --------------------------------------------------------------

const postColumns = `id, title, excerpt, content, category, image, status, author_id, author_name, views, created_at, updated_at`

func (s *Store) CreatePost(ctx context.Context, p blogpost.Post) (blogpost.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_blog_posts (id, title, excerpt, content, category, image, status, author_id, author_name, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.Title, p.Excerpt, p.Content, p.Category, p.Image, p.Status, p.AuthorID, p.AuthorName, p.Views, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return blogpost.Post{}, translateErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, p blogpost.Post) (blogpost.Post, error) {
	existing, err := s.GetPost(ctx, p.ID)
	if err != nil {
		return blogpost.Post{}, err
	}

	p.AuthorID = existing.AuthorID
	p.AuthorName = existing.AuthorName
	p.Views = existing.Views
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE store_blog_posts
		SET title = $2, excerpt = $3, content = $4, category = $5, image = $6, status = $7, updated_at = $8
		WHERE id = $1
	`, p.ID, p.Title, p.Excerpt, p.Content, p.Category, p.Image, p.Status, p.UpdatedAt)
	if err != nil {
		return blogpost.Post{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return blogpost.Post{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (blogpost.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM store_blog_posts
		WHERE id = $1
	`, id)
	return scanPost(row)
}

func (s *Store) ListPosts(ctx context.Context, f storage.PostFilter, page, pageSize int) ([]blogpost.Post, int64, error) {
	where := `($1 = '' OR category = $1)
		AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR excerpt ILIKE '%' || $2 || '%' OR category ILIKE '%' || $2 || '%')
		AND (NOT $3 OR status = 'PUBLISHED')`

	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM store_blog_posts WHERE `+where,
		f.Category, f.Search, f.PublishedOnly).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM store_blog_posts
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, f.Category, f.Search, f.PublishedOnly, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []blogpost.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_blog_posts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE store_blog_posts SET views = views + 1 WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_users (id, name, email, password_hash, role, active, created_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Active, u.CreatedAt)
	if err != nil {
		return user.User{}, translateErr(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM store_users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM store_users
		WHERE email = LOWER($1)
	`, email)
	return scanUser(row)
}

// --- helpers ----------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (product.Product, error) {
	var (
		p              product.Product
		screenshotsRaw []byte
		featuresRaw    []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Status, &p.Image, &screenshotsRaw, &featuresRaw, &p.DownloadURL, &p.Sales, &p.Rating, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return product.Product{}, translateErr(err)
	}
	if len(screenshotsRaw) > 0 {
		_ = json.Unmarshal(screenshotsRaw, &p.Screenshots)
	}
	if len(featuresRaw) > 0 {
		_ = json.Unmarshal(featuresRaw, &p.Features)
	}
	return p, nil
}

func scanPurchase(row rowScanner) (purchase.Purchase, error) {
	var (
		p            purchase.Purchase
		lastDownload sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.ProductID, &p.ProductName, &p.CustomerName, &p.CustomerEmail, &p.Amount, &p.TransactionID, &p.PaymentStatus, &p.DownloadCount, &lastDownload, &p.IPAddress, &p.CreatedAt); err != nil {
		return purchase.Purchase{}, translateErr(err)
	}
	if lastDownload.Valid {
		t := lastDownload.Time.UTC()
		p.LastDownloadAt = &t
	}
	return p, nil
}

func scanContact(row rowScanner) (contact.Contact, error) {
	var c contact.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &c.Status, &c.IPAddress, &c.CreatedAt); err != nil {
		return contact.Contact{}, translateErr(err)
	}
	return c, nil
}

func scanPost(row rowScanner) (blogpost.Post, error) {
	var p blogpost.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Category, &p.Image, &p.Status, &p.AuthorID, &p.AuthorName, &p.Views, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return blogpost.Post{}, translateErr(err)
	}
	return p, nil
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
		return user.User{}, translateErr(err)
	}
	return u, nil
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// translateErr maps driver errors onto the storage sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s", storage.ErrConflict, strings.TrimSpace(pqErr.Constraint))
	}
	return err
}
