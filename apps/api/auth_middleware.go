package main

import (
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/Chetanya2001/CRM-backend/platform/auth"
)

// buildAuthMiddleware constructs the bearer-token middleware. Tokens are
// HMAC-signed JWTs; requests without a token pass through unauthenticated
// and route groups that need identity compose RequireAuthenticated.
func buildAuthMiddleware(cfg config, logger *zap.Logger) func(http.Handler) http.Handler {
	if len(cfg.JWTSecret) < 16 {
		logger.Warn("JWT_SECRET is short; tokens are easy to forge")
	}
	verify := platformauth.HMACTokenVerifier([]byte(cfg.JWTSecret))
	return platformauth.JWT(verify, platformauth.DefaultCredentialExtractor)
}
