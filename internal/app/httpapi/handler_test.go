package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/codemart-io/storefront/internal/app"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/storage"
	"github.com/codemart-io/storefront/internal/app/storage/memory"
)

func newTestHandler(t *testing.T, autoComplete bool) http.Handler {
	t.Helper()
	application := app.New(app.Stores{}, app.Options{
		JWTSecret:            "handler-test-secret",
		TokenTTL:             time.Hour,
		AutoCompletePayments: autoComplete,
	}, nil)
	h, err := NewHandler(application, Options{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func marshal(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(b)
}

func do(t *testing.T, h http.Handler, method, path, token string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", resp.Body.String(), err)
	}
	return out
}

func adminToken(t *testing.T, h http.Handler) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/api/auth/register-admin", "", marshal(t, map[string]interface{}{
		"name":     "Admin",
		"email":    "admin@example.com",
		"password": "correct-horse",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("register admin: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = do(t, h, http.MethodPost, "/api/auth/login", "", marshal(t, map[string]interface{}{
		"email":    "admin@example.com",
		"password": "correct-horse",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	token, _ := decode(t, resp)["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response")
	}
	return token
}

func TestHandlerPurchaseLifecycle(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	// Admin creates a product.
	resp := do(t, h, http.MethodPost, "/api/products", token, marshal(t, map[string]interface{}{
		"name":        "Taxi App",
		"description": "ride hailing source code",
		"price":       "49.99",
		"category":    "mobility",
		"downloadUrl": "https://downloads.example.com/taxi.zip",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	productID, _ := decode(t, resp)["id"].(string)
	if productID == "" {
		t.Fatalf("no product id in response")
	}

	// Public catalog shows it, without the download location.
	resp = do(t, h, http.MethodGet, "/api/products/"+productID, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get product: expected 200, got %d", resp.Code)
	}
	if url, ok := decode(t, resp)["downloadUrl"]; ok && url != "" {
		t.Fatalf("public product leaks download url: %v", url)
	}

	// Paying the wrong amount is rejected and records nothing.
	resp = do(t, h, http.MethodPost, "/api/purchases", "", marshal(t, map[string]interface{}{
		"productId":     productID,
		"customerName":  "Jane Doe",
		"customerEmail": "jane@example.com",
		"amount":        "19.99",
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("mismatched amount: expected 400, got %d", resp.Code)
	}

	// Paying the listed price succeeds.
	resp = do(t, h, http.MethodPost, "/api/purchases", "", marshal(t, map[string]interface{}{
		"productId":     productID,
		"customerName":  "Jane Doe",
		"customerEmail": "jane@example.com",
		"amount":        "49.99",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create purchase: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	created := decode(t, resp)
	txID, _ := created["transactionId"].(string)
	if txID == "" {
		t.Fatalf("no transaction id in response")
	}
	if created["paymentStatus"] != "COMPLETED" {
		t.Fatalf("expected auto-completed purchase, got %v", created["paymentStatus"])
	}
	purchaseID, _ := created["id"].(string)

	// The transaction id resolves to an entitlement with the real link.
	resp = do(t, h, http.MethodGet, "/api/purchases/transaction/"+txID, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	grant := decode(t, resp)
	if grant["downloadUrl"] != "https://downloads.example.com/taxi.zip" {
		t.Fatalf("grant missing download url: %v", grant)
	}
	if grant["downloadCount"] != float64(0) {
		t.Fatalf("resolve must not count a download: %v", grant["downloadCount"])
	}

	// Downloads count monotonically.
	for want := 1; want <= 2; want++ {
		resp = do(t, h, http.MethodPost, "/api/purchases/download/"+txID, "", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("download %d: expected 200, got %d", want, resp.Code)
		}
		if got := decode(t, resp)["downloadCount"]; got != float64(want) {
			t.Fatalf("expected %d downloads, got %v", want, got)
		}
	}

	// Admin list carries whole-ledger stats.
	resp = do(t, h, http.MethodGet, "/api/purchases?page=1&limit=10", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list purchases: expected 200, got %d", resp.Code)
	}
	listing := decode(t, resp)
	stats, _ := listing["stats"].(map[string]interface{})
	if stats == nil || stats["totalSales"] != float64(1) {
		t.Fatalf("unexpected stats: %v", listing)
	}

	// A refund revokes the entitlement: resolve and download both 404.
	resp = do(t, h, http.MethodPatch, "/api/purchases/"+purchaseID+"/status", token, marshal(t, map[string]interface{}{
		"paymentStatus": "REFUNDED",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("refund: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = do(t, h, http.MethodGet, "/api/purchases/transaction/"+txID, "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("resolve after refund: expected 404, got %d", resp.Code)
	}
	resp = do(t, h, http.MethodPost, "/api/purchases/download/"+txID, "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("download after refund: expected 404, got %d", resp.Code)
	}

	// Unknown transaction ids look exactly the same as refunded ones.
	resp = do(t, h, http.MethodGet, "/api/purchases/transaction/TXN_0_0000000000000000", "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown transaction: expected 404, got %d", resp.Code)
	}

	// Deleting the product keeps the order history intact.
	resp = do(t, h, http.MethodDelete, "/api/products/"+productID, token, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete product: expected 204, got %d", resp.Code)
	}
	resp = do(t, h, http.MethodGet, "/api/purchases?search=jane", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list after deletion: expected 200, got %d", resp.Code)
	}
	if decode(t, resp)["total"] != float64(1) {
		t.Fatalf("purchase lost after product deletion")
	}
}

func TestHandlerAdminBoundary(t *testing.T) {
	h := newTestHandler(t, true)

	adminOnly := []struct{ method, path string }{
		{http.MethodGet, "/api/products/admin/all"},
		{http.MethodPost, "/api/products"},
		{http.MethodGet, "/api/purchases"},
		{http.MethodGet, "/api/contacts"},
		{http.MethodGet, "/api/blog/admin/all"},
		{http.MethodGet, "/api/dashboard/stats"},
		{http.MethodGet, "/api/audit"},
	}
	for _, tc := range adminOnly {
		resp := do(t, h, tc.method, tc.path, "", marshal(t, map[string]interface{}{}))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: expected 401, got %d", tc.method, tc.path, resp.Code)
		}
		resp = do(t, h, tc.method, tc.path, "garbage-token", marshal(t, map[string]interface{}{}))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestHandlerUnknownFieldsRejected(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	resp := do(t, h, http.MethodPost, "/api/products", token, marshal(t, map[string]interface{}{
		"name":     "App",
		"price":    "10",
		"surprise": true,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", resp.Code)
	}
}

func TestHandlerContactsFlow(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	resp := do(t, h, http.MethodPost, "/api/contacts", "", marshal(t, map[string]interface{}{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"message": "Does the taxi app include the driver app?",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("submit contact: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	contactID, _ := decode(t, resp)["id"].(string)

	resp = do(t, h, http.MethodGet, "/api/contacts", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list contacts: expected 200, got %d", resp.Code)
	}
	if decode(t, resp)["unreadCount"] != float64(1) {
		t.Fatalf("expected 1 unread contact")
	}

	// First admin view marks it READ.
	resp = do(t, h, http.MethodGet, "/api/contacts/"+contactID, token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get contact: expected 200, got %d", resp.Code)
	}
	if decode(t, resp)["status"] != "READ" {
		t.Fatalf("contact not marked READ on view")
	}

	resp = do(t, h, http.MethodGet, "/api/contacts", token, nil)
	if decode(t, resp)["unreadCount"] != float64(0) {
		t.Fatalf("unread count not cleared after view")
	}
}

func TestHandlerBlogFlow(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	resp := do(t, h, http.MethodPost, "/api/blog", token, marshal(t, map[string]interface{}{
		"title":   "Launch week",
		"content": "Everything is on sale.",
		"status":  "PUBLISHED",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	postID, _ := decode(t, resp)["id"].(string)

	resp = do(t, h, http.MethodPost, "/api/blog", token, marshal(t, map[string]interface{}{
		"title":   "Working draft",
		"content": "not ready",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d", resp.Code)
	}
	draftID, _ := decode(t, resp)["id"].(string)

	// Public list sees only the published post; the draft 404s.
	resp = do(t, h, http.MethodGet, "/api/blog", "", nil)
	if decode(t, resp)["total"] != float64(1) {
		t.Fatalf("public blog list should hide drafts")
	}
	resp = do(t, h, http.MethodGet, "/api/blog/"+draftID, "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("draft: expected 404, got %d", resp.Code)
	}

	// Public reads count views.
	resp = do(t, h, http.MethodGet, "/api/blog/"+postID, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get post: expected 200, got %d", resp.Code)
	}
	if decode(t, resp)["views"] != float64(1) {
		t.Fatalf("view not counted")
	}

	// Admin sees everything.
	resp = do(t, h, http.MethodGet, "/api/blog/admin/all", token, nil)
	if decode(t, resp)["total"] != float64(2) {
		t.Fatalf("admin blog list should include drafts")
	}
}

func TestHandlerDashboardAndAudit(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	resp := do(t, h, http.MethodPost, "/api/products", token, marshal(t, map[string]interface{}{
		"name":  "Taxi App",
		"price": "25.00",
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create product: %d", resp.Code)
	}
	productID, _ := decode(t, resp)["id"].(string)

	for i := 0; i < 2; i++ {
		resp = do(t, h, http.MethodPost, "/api/purchases", "", marshal(t, map[string]interface{}{
			"productId":     productID,
			"customerName":  fmt.Sprintf("Customer %d", i),
			"customerEmail": fmt.Sprintf("c%d@example.com", i),
			"amount":        "25.00",
		}))
		if resp.Code != http.StatusCreated {
			t.Fatalf("purchase %d: %d", i, resp.Code)
		}
	}

	resp = do(t, h, http.MethodGet, "/api/dashboard/stats", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.Code)
	}
	stats := decode(t, resp)
	if stats["totalSales"] != float64(2) {
		t.Fatalf("unexpected stats: %v", stats)
	}
	revenue, _ := stats["totalRevenue"].(string)
	got, err := decimal.NewFromString(revenue)
	if err != nil || !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected revenue 50, got %q", revenue)
	}
	if stats["activeProducts"] != float64(1) {
		t.Fatalf("expected 1 active product, got %v", stats["activeProducts"])
	}

	// Admin calls end up in the audit trail.
	resp = do(t, h, http.MethodGet, "/api/audit", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("audit: expected 200, got %d", resp.Code)
	}
	entries, _ := decode(t, resp)["entries"].([]interface{})
	if len(entries) == 0 {
		t.Fatalf("audit log empty after admin activity")
	}
}

// flakyPurchaseStore fails listings the way a lost database connection would.
type flakyPurchaseStore struct {
	*memory.Store
	err error
}

func (s flakyPurchaseStore) ListPurchases(ctx context.Context, f storage.PurchaseFilter, page, pageSize int) ([]purchase.Purchase, int64, error) {
	return nil, 0, s.err
}

func TestHandlerStoreFailuresAre500(t *testing.T) {
	application := app.New(app.Stores{
		Purchases: flakyPurchaseStore{Store: memory.New(), err: errors.New("connection refused")},
	}, app.Options{
		JWTSecret:            "handler-test-secret",
		TokenTTL:             time.Hour,
		AutoCompletePayments: true,
	}, nil)
	h, err := NewHandler(application, Options{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	token := adminToken(t, h)

	resp := do(t, h, http.MethodGet, "/api/purchases", token, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("store failure: expected 500, got %d: %s", resp.Code, resp.Body.String())
	}

	// Classified validation failures still read as client errors.
	resp = do(t, h, http.MethodPost, "/api/purchases", "", marshal(t, map[string]interface{}{
		"productId":     "p1",
		"customerName":  "Jane Doe",
		"customerEmail": "not-an-email",
		"amount":        "10",
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid email: expected 400, got %d", resp.Code)
	}
}

func TestHandlerEmptyListsSerializeAsArrays(t *testing.T) {
	h := newTestHandler(t, true)
	token := adminToken(t, h)

	lists := []struct{ path, key, token string }{
		{"/api/products", "products", ""},
		{"/api/blog", "posts", ""},
		{"/api/purchases", "purchases", token},
		{"/api/contacts", "contacts", token},
	}
	for _, tc := range lists {
		resp := do(t, h, http.MethodGet, tc.path, tc.token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", tc.path, resp.Code)
		}
		if _, ok := decode(t, resp)[tc.key].([]interface{}); !ok {
			t.Fatalf("GET %s: %q should be an empty array, got %s", tc.path, tc.key, resp.Body.String())
		}
	}
}
