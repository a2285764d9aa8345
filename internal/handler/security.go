package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/staff"
)

// APIKeyHeader carries a staff member's API key.
const APIKeyHeader = "api_key"

// authenticate resolves the api_key header to a staff member and stores it in
// the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := h.staff.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := staff.WithMember(r.Context(), m)
		ctx = zctx.With(ctx, zap.String("staff_id", m.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole rejects members below need. It must run after authenticate.
func requireRole(need staff.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m, _ := staff.FromContext(r.Context())
			if err := staff.Authorize(m, need); err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
