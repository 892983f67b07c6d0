package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	platformauth "github.com/Chetanya2001/CRM-backend/platform/auth"
	"github.com/Chetanya2001/CRM-backend/platform/tenant"
)

// TenantHeader is the request header carrying the tenant identifier.
const TenantHeader = "X-Company-ID"

// Resolver is the minimal capability this middleware needs from the tenant
// connection manager.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (*tenant.Conn, error)
}

// Config controls middleware behavior.
type Config struct {
	// Header overrides the tenant id header. Defaults to TenantHeader.
	Header string
	Logger *zap.Logger
}

// ResolveTenant extracts the tenant id from the request (header first, then
// the authenticated token's company claim), resolves the tenant's database
// connection and attaches it to the request context. On any failure the
// downstream handler is never invoked.
func ResolveTenant(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}
	header := cfg.Header
	if header == "" {
		header = TenantHeader
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := extractTenantID(r, header)
			if tenantID == "" {
				http.Error(w, "tenant required", http.StatusBadRequest)
				return
			}

			conn, err := resolver.Resolve(r.Context(), tenantID)
			if err != nil {
				status, msg := statusForResolveError(err)
				if status >= http.StatusInternalServerError {
					logger.Error("tenant resolution failed",
						zap.String("tenant_id", tenantID), zap.Error(err))
				}
				http.Error(w, msg, status)
				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.WithConn(r.Context(), conn)))
		})
	}
}

func extractTenantID(r *http.Request, header string) string {
	if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
		return id
	}
	if creds, ok := platformauth.UserFromContext(r.Context()); ok && creds.CompanyID != nil {
		return strings.TrimSpace(*creds.CompanyID)
	}
	return ""
}

func statusForResolveError(err error) (int, string) {
	var connErr *tenant.ConnectionError
	switch {
	case errors.Is(err, tenant.ErrInvalidTenant):
		return http.StatusBadRequest, "invalid tenant id"
	case errors.Is(err, tenant.ErrUnknownTenant):
		return http.StatusNotFound, "unknown tenant"
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable, "tenant database unavailable"
	default:
		return http.StatusInternalServerError, "tenant resolution failed"
	}
}
