package auth

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return s
}

// captureClaims records the claims the middleware stored
func captureClaims(out **Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := GetUserFromContext(r.Context())
		*out = claims
		w.WriteHeader(http.StatusOK)
	})
}

func newTestAuthenticator(opts Options) *Authenticator {
	return NewAuthenticator(opts, zerolog.New(&bytes.Buffer{}))
}

func TestMiddlewareMissingToken(t *testing.T) {
	a := newTestAuthenticator(Options{})
	var got *Claims

	rec := httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, got)
}

func TestMiddlewareSkipAuth(t *testing.T) {
	a := newTestAuthenticator(Options{SkipAuth: true})
	var got *Claims

	rec := httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, RoleAdmin, got.Role)
}

func TestMiddlewareUnverifiedToken(t *testing.T) {
	a := newTestAuthenticator(Options{})
	token := unsignedToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"email":        "andi@example.com",
		"name":         "Andi Wijaya",
		"realm_access": map[string]interface{}{"roles": []interface{}{"offline_access", "sales"}},
		"exp":          float64(time.Now().Add(time.Hour).Unix()),
	})

	var got *Claims
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "andi@example.com", got.Email)
	assert.Equal(t, RoleSales, got.Role)
	assert.Equal(t, "Andi Wijaya", got.SalesName)
	assert.Equal(t, "user-1", got.Subject)

	name, restricted := got.RestrictedTo()
	assert.True(t, restricted)
	assert.Equal(t, "Andi Wijaya", name)
}

func TestMiddlewareTokenFromQuery(t *testing.T) {
	a := newTestAuthenticator(Options{})
	token := unsignedToken(t, jwt.MapClaims{"email": "budi@example.com", "groups": []interface{}{"salesboard-managers"}})

	var got *Claims
	rec := httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleManager, got.Role)
	assert.True(t, got.IsManagerOrAdmin())
}

func TestMiddlewareExpiredToken(t *testing.T) {
	a := newTestAuthenticator(Options{})
	token := unsignedToken(t, jwt.MapClaims{
		"email": "andi@example.com",
		"exp":   float64(time.Now().Add(-time.Hour).Unix()),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	var got *Claims
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareVerifiedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	a := newTestAuthenticator(Options{
		Keyfunc: func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil },
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"email":      "citra@example.com",
		"role":       "admin",
		"sales_name": "Citra",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	var got *Claims
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleAdmin, got.Role)
	assert.Equal(t, "Citra", got.SalesName)

	// A token signed with HMAC is rejected once signatures are verified
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, jwt.MapClaims{"email": "x@example.com"}))
	rec = httptest.NewRecorder()
	a.Middleware(captureClaims(&got)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssuerEnablesVerification(t *testing.T) {
	a := newTestAuthenticator(Options{OIDCIssuer: "https://idp.example.com/realms/sales"})
	assert.True(t, a.VerifiesSignatures())

	forged := jwt.MapClaims{
		"email": "mallory@example.com",
		"role":  "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	hmacSigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, forged).SignedString([]byte("attacker-key"))
	require.NoError(t, err)
	noneSigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, forged).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{"hmac": hmacSigned, "none": noneSigned} {
		t.Run(name, func(t *testing.T) {
			var got *Claims
			req := httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			a.Middleware(captureClaims(&got)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, got)
		})
	}

	// Disallowed signing methods are rejected before any key is fetched
	assert.Nil(t, a.jwks)
}

func TestVerifiesSignatures(t *testing.T) {
	assert.False(t, newTestAuthenticator(Options{}).VerifiesSignatures())
	assert.True(t, newTestAuthenticator(Options{VerifySignature: true}).VerifiesSignatures())
	assert.True(t, newTestAuthenticator(Options{OIDCIssuer: "https://idp.example.com"}).VerifiesSignatures())
	assert.True(t, newTestAuthenticator(Options{
		Keyfunc: func(*jwt.Token) (interface{}, error) { return nil, nil },
	}).VerifiesSignatures())
}

func TestVerificationWithoutIssuerFails(t *testing.T) {
	a := newTestAuthenticator(Options{VerifySignature: true})
	_, err := a.validateToken(unsignedToken(t, jwt.MapClaims{}))
	assert.Error(t, err)
}

func TestExtractRole(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		groups []string
		want   string
	}{
		{
			name:   "highest realm role wins",
			claims: jwt.MapClaims{"realm_access": map[string]interface{}{"roles": []interface{}{"sales", "manager"}}},
			want:   RoleManager,
		},
		{name: "plain role claim", claims: jwt.MapClaims{"role": "admin"}, want: RoleAdmin},
		{name: "group name", claims: jwt.MapClaims{}, groups: []string{"/teams/sales"}, want: RoleSales},
		{name: "default", claims: jwt.MapClaims{}, want: RoleViewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRoleFromMapClaims(tt.claims, tt.groups))
		})
	}
}

func TestRequireManagerOrAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireManagerOrAdmin(ok)

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{name: "no user", want: http.StatusUnauthorized},
		{name: "sales", claims: &Claims{Role: RoleSales}, want: http.StatusForbidden},
		{name: "viewer", claims: &Claims{Role: RoleViewer}, want: http.StatusForbidden},
		{name: "manager", claims: &Claims{Role: RoleManager}, want: http.StatusNoContent},
		{name: "admin", claims: &Claims{Role: RoleAdmin}, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
			if tt.claims != nil {
				req = req.WithContext(WithUser(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
