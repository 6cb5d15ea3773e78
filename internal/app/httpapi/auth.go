package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/codemart-io/storefront/internal/app/services/identity"
	apperrors "github.com/codemart-io/storefront/internal/errors"
)

type ctxKey int

const identityKey ctxKey = iota

// identityFrom returns the authenticated caller for this request, if any.
// Identities live in the request context only; nothing is ever stored
// globally, so concurrent requests for different admins cannot bleed into
// each other.
func identityFrom(ctx context.Context) (identity.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(identity.Identity)
	return ident, ok
}

// requireAdmin authenticates the bearer token, attaches the identity to the
// request context, and records the call in the audit log.
func (h *handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, apperrors.Unauthorized("missing Authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, apperrors.Unauthorized("invalid Authorization header format"))
			return
		}

		ident, err := h.app.Identity.Authenticate(r.Context(), parts[1])
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		if !ident.IsAdmin() {
			writeError(w, http.StatusForbidden, apperrors.Forbidden("admin role required"))
			return
		}

		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), identityKey, ident)
		next(rec, r.WithContext(ctx))

		h.audit.add(auditEntry{
			Time:       timeNow().UTC(),
			User:       ident.Email,
			Role:       string(ident.Role),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: clientAddr(r),
			UserAgent:  r.UserAgent(),
		})
	}
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
