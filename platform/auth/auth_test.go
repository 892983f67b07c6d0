package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signedToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	token, err := SignHMACToken(testSecret, claims)
	require.NoError(t, err)
	return token
}

func TestJWTValidToken(t *testing.T) {
	t.Parallel()

	var captured *UserCredentials
	handler := JWT(HMACTokenVerifier(testSecret), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := signedToken(t, map[string]interface{}{
		"sub":       "u1",
		"email":     "agent@example.com",
		"role":      "executive",
		"companyId": "c1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	require.Equal(t, "u1", captured.ID)
	require.Equal(t, "executive", captured.Role)
	require.NotNil(t, captured.CompanyID)
	require.Equal(t, "c1", *captured.CompanyID)
}

func TestJWTExpiredToken(t *testing.T) {
	t.Parallel()

	handler := JWT(HMACTokenVerifier(testSecret), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an expired token")
	}))

	token := signedToken(t, map[string]interface{}{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestJWTGarbageToken(t *testing.T) {
	t.Parallel()

	handler := JWT(HMACTokenVerifier(testSecret), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a garbage token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTNoTokenPassesThroughUnauthenticated(t *testing.T) {
	t.Parallel()

	handler := JWT(HMACTokenVerifier(testSecret), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := UserFromContext(r.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()

	handler := RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req = req.WithContext(WithUser(req.Context(), &UserCredentials{ID: "u1"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	handler := RequireRole("hr")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/hr", nil)
	req = req.WithContext(WithUser(req.Context(), &UserCredentials{ID: "u1", Role: "executive"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/hr", nil)
	req = req.WithContext(WithUser(req.Context(), &UserCredentials{ID: "u2", Role: "HR"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
