// Package httpapi exposes the storefront REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	app "github.com/codemart-io/storefront/internal/app"
	"github.com/codemart-io/storefront/internal/app/domain/blogpost"
	"github.com/codemart-io/storefront/internal/app/domain/contact"
	"github.com/codemart-io/storefront/internal/app/domain/product"
	"github.com/codemart-io/storefront/internal/app/domain/purchase"
	"github.com/codemart-io/storefront/internal/app/services/blog"
	"github.com/codemart-io/storefront/internal/app/services/catalog"
	ledgersvc "github.com/codemart-io/storefront/internal/app/services/ledger"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Options tunes the handler beyond its service dependencies.
type Options struct {
	// AuditLogPath, when set, mirrors admin audit entries to a JSONL file.
	AuditLogPath string
	// AuditMax bounds the in-memory audit ring. Zero means the default.
	AuditMax int
	Logger   *logger.Logger
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns a mux exposing the storefront REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	sink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	h := &handler{
		app:   application,
		audit: newAuditLog(opts.AuditMax, sink),
		log:   log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register-admin", h.registerAdmin).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.requireAdmin(h.me)).Methods(http.MethodGet)

	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/admin/all", h.requireAdmin(h.listAllProducts)).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/products", h.requireAdmin(h.createProduct)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", h.requireAdmin(h.updateProduct)).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", h.requireAdmin(h.deleteProduct)).Methods(http.MethodDelete)

	api.HandleFunc("/purchases", h.createPurchase).Methods(http.MethodPost)
	api.HandleFunc("/purchases/transaction/{transactionId}", h.resolvePurchase).Methods(http.MethodGet)
	api.HandleFunc("/purchases/download/{transactionId}", h.recordDownload).Methods(http.MethodPost)
	api.HandleFunc("/purchases", h.requireAdmin(h.listPurchases)).Methods(http.MethodGet)
	api.HandleFunc("/purchases/{id}/status", h.requireAdmin(h.setPaymentStatus)).Methods(http.MethodPatch)
	api.HandleFunc("/purchases/{id}", h.requireAdmin(h.deletePurchase)).Methods(http.MethodDelete)

	api.HandleFunc("/contacts", h.submitContact).Methods(http.MethodPost)
	api.HandleFunc("/contacts", h.requireAdmin(h.listContacts)).Methods(http.MethodGet)
	api.HandleFunc("/contacts/{id}", h.requireAdmin(h.getContact)).Methods(http.MethodGet)
	api.HandleFunc("/contacts/{id}/status", h.requireAdmin(h.setContactStatus)).Methods(http.MethodPatch)
	api.HandleFunc("/contacts/{id}", h.requireAdmin(h.deleteContact)).Methods(http.MethodDelete)

	api.HandleFunc("/blog", h.listPublishedPosts).Methods(http.MethodGet)
	api.HandleFunc("/blog/admin/all", h.requireAdmin(h.listAllPosts)).Methods(http.MethodGet)
	api.HandleFunc("/blog/{id}", h.getPublishedPost).Methods(http.MethodGet)
	api.HandleFunc("/blog", h.requireAdmin(h.createPost)).Methods(http.MethodPost)
	api.HandleFunc("/blog/{id}", h.requireAdmin(h.updatePost)).Methods(http.MethodPut)
	api.HandleFunc("/blog/{id}", h.requireAdmin(h.deletePost)).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/stats", h.requireAdmin(h.dashboardStats)).Methods(http.MethodGet)
	api.HandleFunc("/audit", h.requireAdmin(h.listAudit)).Methods(http.MethodGet)

	return r, nil
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth -------------------------------------------------------------------

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, u, err := h.app.Identity.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  u,
	})
}

func (h *handler) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Identity.RegisterAdmin(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    ident.UserID,
		"name":  ident.Name,
		"email": ident.Email,
		"role":  string(ident.Role),
	})
}

// --- products ---------------------------------------------------------------

type productPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	Image       string   `json:"image"`
	Screenshots []string `json:"screenshots"`
	Features    []string `json:"features"`
	DownloadURL string   `json:"downloadUrl"`
	Rating      float64  `json:"rating"`
}

func (p productPayload) toInput() (catalog.Input, error) {
	price := decimal.Zero
	if strings.TrimSpace(p.Price) != "" {
		parsed, err := decimal.NewFromString(p.Price)
		if err != nil {
			return catalog.Input{}, fmt.Errorf("price is not a valid amount")
		}
		price = parsed
	}
	return catalog.Input{
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    p.Category,
		Status:      product.Status(p.Status),
		Image:       p.Image,
		Screenshots: p.Screenshots,
		Features:    p.Features,
		DownloadURL: p.DownloadURL,
		Rating:      p.Rating,
	}, nil
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.ProductFilter{
		Category:   r.URL.Query().Get("category"),
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: true,
	}

	items, total, err := h.app.Catalog.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	// The download location is only ever revealed through an entitlement.
	for i := range items {
		items[i].DownloadURL = ""
	}
	writeJSON(w, http.StatusOK, listEnvelope("products", items, total, page, pageSize, nil))
}

func (h *handler) listAllProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	items, total, err := h.app.Catalog.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope("products", items, total, page, pageSize, nil))
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	prod, err := h.app.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	// The public surface never shows inactive items or the download location.
	// Admin tooling reads the full records through /products/admin/all.
	if prod.Status != product.StatusActive {
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
		return
	}
	prod.DownloadURL = ""
	writeJSON(w, http.StatusOK, prod)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := payload.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := payload.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Catalog.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- purchases --------------------------------------------------------------

func (h *handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID     string `json:"productId"`
		CustomerName  string `json:"customerName"`
		CustomerEmail string `json:"customerEmail"`
		Amount        string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount is not a valid amount"))
		return
	}

	created, err := h.app.Ledger.Create(r.Context(), ledgersvc.Input{
		ProductID:     payload.ProductID,
		CustomerName:  payload.CustomerName,
		CustomerEmail: payload.CustomerEmail,
		Amount:        amount,
		IPAddress:     clientAddr(r),
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) resolvePurchase(w http.ResponseWriter, r *http.Request) {
	grant, err := h.app.Entitlement.Resolve(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (h *handler) recordDownload(w http.ResponseWriter, r *http.Request) {
	grant, err := h.app.Entitlement.RecordDownload(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (h *handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.PurchaseFilter{
		Search: r.URL.Query().Get("search"),
		Status: purchase.PaymentStatus(strings.ToUpper(r.URL.Query().Get("status"))),
	}

	items, total, agg, err := h.app.Ledger.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope("purchases", items, total, page, pageSize, map[string]interface{}{
		"stats": agg,
	}))
}

func (h *handler) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := purchase.PaymentStatus(strings.ToUpper(strings.TrimSpace(payload.PaymentStatus)))

	updated, err := h.app.Ledger.SetPaymentStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ledger.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- contacts ---------------------------------------------------------------

func (h *handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Contacts.Submit(r.Context(), payload.Name, payload.Email, payload.Message, clientAddr(r))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listContacts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.ContactFilter{
		Search: r.URL.Query().Get("search"),
		Status: contact.Status(strings.ToUpper(r.URL.Query().Get("status"))),
	}

	items, total, unread, err := h.app.Contacts.List(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope("contacts", items, total, page, pageSize, map[string]interface{}{
		"unreadCount": unread,
	}))
}

func (h *handler) getContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Contacts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) setContactStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := contact.Status(strings.ToUpper(strings.TrimSpace(payload.Status)))

	updated, err := h.app.Contacts.SetStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Contacts.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- blog -------------------------------------------------------------------

type postPayload struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    string `json:"image"`
	Status   string `json:"status"`
}

func (p postPayload) toInput() blog.Input {
	return blog.Input{
		Title:    p.Title,
		Excerpt:  p.Excerpt,
		Content:  p.Content,
		Category: p.Category,
		Image:    p.Image,
		Status:   blogpost.Status(strings.ToUpper(p.Status)),
	}
}

func (h *handler) listPublishedPosts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.PostFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	items, total, err := h.app.Blog.ListPublished(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope("posts", items, total, page, pageSize, nil))
}

func (h *handler) listAllPosts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filter := storage.PostFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	items, total, err := h.app.Blog.ListAll(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, listEnvelope("posts", items, total, page, pageSize, nil))
}

func (h *handler) getPublishedPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Blog.GetPublished(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var payload postPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ident, _ := identityFrom(r.Context())

	created, err := h.app.Blog.Create(r.Context(), ident.UserID, ident.Name, payload.toInput())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var payload postPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.app.Blog.Update(r.Context(), mux.Vars(r)["id"], payload.toInput())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Blog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- dashboard and audit ----------------------------------------------------

func (h *handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Dashboard.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": h.audit.list()})
}

// --- helpers ----------------------------------------------------------------

func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	pageSize = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// listEnvelope is the list response shape shared by every collection endpoint.
func listEnvelope(key string, items interface{}, total int64, page, pageSize int, extra map[string]interface{}) map[string]interface{} {
	// Stores hand back nil slices for empty pages; the wire format is always
	// an array, never null.
	if v := reflect.ValueOf(items); v.Kind() == reflect.Slice && v.IsNil() {
		items = []interface{}{}
	}
	totalPages := int64(0)
	if pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	out := map[string]interface{}{
		key:           items,
		"total":       total,
		"totalPages":  totalPages,
		"currentPage": page,
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// statusFor maps service and storage errors to HTTP statuses. Anything the
// services did not classify is an internal failure, never a client error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	}
	return apperrors.StatusFor(err)
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	return r.RemoteAddr
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
