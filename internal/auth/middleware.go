package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Dashboard roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
	RoleViewer  = "viewer"
)

// rolePriority orders roles from most to least privileged
var rolePriority = []string{RoleAdmin, RoleManager, RoleSales, RoleViewer}

type Claims struct {
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Groups []string `json:"groups"`
	// SalesName is the CRM assignee name a sales user is limited to
	SalesName string `json:"salesName,omitempty"`
	jwt.RegisteredClaims
}

// IsManagerOrAdmin reports whether the user may trigger refreshes
func (c *Claims) IsManagerOrAdmin() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// RestrictedTo returns the assignee name the user's views are limited to.
// ok is false when the user may see every assignee.
func (c *Claims) RestrictedTo() (string, bool) {
	if c.Role != RoleSales {
		return "", false
	}
	return c.SalesName, true
}

type contextKey string

const UserContextKey contextKey = "user"

// Options configures token handling
type Options struct {
	SkipAuth        bool
	VerifySignature bool
	OIDCIssuer      string

	// Keyfunc overrides JWKS lookup for signature verification
	Keyfunc jwt.Keyfunc
}

// Authenticator validates bearer tokens issued by the OIDC provider
type Authenticator struct {
	opts   Options
	logger zerolog.Logger

	jwksOnce sync.Once
	jwksErr  error
	jwks     keyfunc.Keyfunc
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(opts Options, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		opts:   opts,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// InitJWKS fetches the provider's signing keys. Call this on server startup
// when signatures are verified.
func (a *Authenticator) InitJWKS() error {
	a.jwksOnce.Do(func() {
		if a.opts.OIDCIssuer == "" {
			a.jwksErr = fmt.Errorf("OIDC_ISSUER not configured for JWT verification")
			return
		}

		// Keycloak certs endpoint
		jwksURL := strings.TrimSuffix(a.opts.OIDCIssuer, "/") + "/protocol/openid-connect/certs"
		a.logger.Info().Str("url", jwksURL).Msg("fetching JWKS")

		k, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			a.jwksErr = fmt.Errorf("failed to create keyfunc: %w", err)
			return
		}
		a.jwks = k
		a.logger.Info().Msg("JWKS loaded")
	})
	return a.jwksErr
}

// VerifiesSignatures reports whether tokens are checked against the
// provider's signing keys. Configuring an issuer always turns this on.
func (a *Authenticator) VerifiesSignatures() bool {
	return a.opts.VerifySignature || a.opts.OIDCIssuer != "" || a.opts.Keyfunc != nil
}

// Middleware validates JWT tokens and stores the claims in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.opts.SkipAuth {
			// Development user with full access
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &Claims{
				Email: "dev@salesboard.local",
				Name:  "Dev User",
				Role:  RoleAdmin,
			})))
			return
		}

		tokenString := extractToken(r)
		if tokenString == "" {
			a.logger.Debug().Str("path", r.URL.Path).Msg("missing authorization token")
			http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}

		claims, err := a.validateToken(tokenString)
		if err != nil {
			a.logger.Warn().Err(err).Msg("token validation failed")
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		a.logger.Debug().Str("email", claims.Email).Str("role", claims.Role).Msg("user authenticated")

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
	})
}

// RequireManagerOrAdmin rejects users without the manager or admin role
func RequireManagerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !claims.IsManagerOrAdmin() {
			http.Error(w, "Forbidden: manager or admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken gets the token from Authorization header or query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString != authHeader {
			return tokenString
		}
	}

	// WebSocket connections cannot set headers from the browser
	return r.URL.Query().Get("token")
}

// validateToken parses the token, verifying its signature when configured
func (a *Authenticator) validateToken(tokenString string) (*Claims, error) {
	verify := a.VerifiesSignatures()

	var token *jwt.Token
	var err error

	if verify {
		token, err = a.parseAndVerifyToken(tokenString)
		if err != nil {
			return nil, err
		}
	} else {
		token, _, err = jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &Claims{}

	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}

	if name, ok := mapClaims["name"].(string); ok {
		claims.Name = name
	} else if preferredUsername, ok := mapClaims["preferred_username"].(string); ok {
		claims.Name = preferredUsername
	}

	claims.Groups = extractGroupsFromMapClaims(mapClaims)
	claims.Role = extractRoleFromMapClaims(mapClaims, claims.Groups)

	// The CRM identifies assignees by full name
	if salesName, ok := mapClaims["sales_name"].(string); ok && salesName != "" {
		claims.SalesName = salesName
	} else {
		claims.SalesName = claims.Name
	}

	if sub, ok := mapClaims["sub"].(string); ok {
		claims.Subject = sub
	}

	// Verified tokens have their expiry checked by the parser
	if !verify {
		if exp, ok := mapClaims["exp"].(float64); ok {
			expTime := time.Unix(int64(exp), 0)
			claims.ExpiresAt = jwt.NewNumericDate(expTime)
			if expTime.Before(time.Now()) {
				return nil, fmt.Errorf("token expired")
			}
		}
	}

	return claims, nil
}

// parseAndVerifyToken verifies the JWT signature using JWKS
func (a *Authenticator) parseAndVerifyToken(tokenString string) (*jwt.Token, error) {
	kf := a.opts.Keyfunc
	if kf == nil {
		// Keys are fetched only for tokens whose signing method is allowed
		kf = func(token *jwt.Token) (interface{}, error) {
			if err := a.InitJWKS(); err != nil {
				return nil, fmt.Errorf("failed to initialize JWKS: %w", err)
			}
			return a.jwks.Keyfunc(token)
		}
	}

	token, err := jwt.Parse(tokenString, kf, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// extractRoleFromMapClaims picks the most privileged dashboard role found in
// realm_access.roles or the user's groups
func extractRoleFromMapClaims(mapClaims jwt.MapClaims, groups []string) string {
	var candidates []string

	// Keycloak
	if realmAccess, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realmAccess["roles"].([]interface{}); ok {
			for _, role := range roles {
				if roleStr, ok := role.(string); ok {
					candidates = append(candidates, roleStr)
				}
			}
		}
	}
	if role, ok := mapClaims["role"].(string); ok {
		candidates = append(candidates, role)
	}

	for _, priority := range rolePriority {
		for _, c := range candidates {
			if c == priority {
				return priority
			}
		}
	}

	// Group names such as "salesboard-managers"
	for _, priority := range rolePriority {
		for _, g := range groups {
			if strings.Contains(g, priority) {
				return priority
			}
		}
	}

	return RoleViewer
}

// extractGroupsFromMapClaims extracts groups from token claims
func extractGroupsFromMapClaims(mapClaims jwt.MapClaims) []string {
	var groups []string

	for _, key := range []string{"groups", "cognito:groups", "custom:groups"} {
		if groupsClaim, ok := mapClaims[key].([]interface{}); ok {
			for _, group := range groupsClaim {
				if groupStr, ok := group.(string); ok {
					groups = append(groups, groupStr)
				}
			}
		}
	}

	return groups
}

// GetUserFromContext retrieves user claims from request context
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// WithUser returns a copy of ctx carrying claims
func WithUser(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}
