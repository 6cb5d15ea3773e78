// Package purchase defines the sale ledger entry and its payment lifecycle.
package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a purchase. Only COMPLETED
// purchases are entitled to download the product artifact.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status value.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Purchase records one sale. ProductName and Amount are snapshots taken at
// creation time; the referenced product may be edited or deleted later
// without affecting this record. TransactionID is the customer's sole
// download credential and is assigned exactly once.
type Purchase struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	CustomerName   string          `json:"customerName"`
	CustomerEmail  string          `json:"customerEmail"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionID  string          `json:"transactionId"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	DownloadCount  int64           `json:"downloadCount"`
	LastDownloadAt *time.Time      `json:"lastDownloadAt,omitempty"`
	IPAddress      string          `json:"ipAddress,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Aggregates summarises the ledger for operator dashboards. All sums and
// counts cover every matching row, never just the current page.
type Aggregates struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalSales     int64           `json:"totalSales"`
	TotalDownloads int64           `json:"totalDownloads"`
	PendingCount   int64           `json:"pendingOrders"`
}
