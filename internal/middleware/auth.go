// Package middleware provides request authentication: Auth0-issued user
// tokens for the dashboard API and a shared device token for the sensor
// ingest path.
package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/41vi4p/TankLens/internal/models"
	"github.com/41vi4p/TankLens/internal/utils"
)

// Authenticator validates Auth0 bearer tokens against the tenant's JWKS.
type Authenticator struct {
	mw *jwtmiddleware.JWTMiddleware
}

// NewAuthenticator builds the JWT validation middleware for an issuer and
// audience.
func NewAuthenticator(issuer, audience string) (*Authenticator, error) {
	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("parse issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
	)
	if err != nil {
		return nil, fmt.Errorf("set up jwt validator: %w", err)
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			utils.RespondWithError(w, models.NewAPIError(
				models.ErrorCodeUnauthorized, "Invalid or missing token", nil, http.StatusUnauthorized))
		}),
	)
	return &Authenticator{mw: mw}, nil
}

// EnsureValidToken wraps a handler with token validation.
func (a *Authenticator) EnsureValidToken(next http.Handler) http.Handler {
	return a.mw.CheckJWT(next)
}

// UserID extracts the authenticated user's stable identifier (the token
// subject) from the request context.
func UserID(r *http.Request) (string, bool) {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims.RegisteredClaims.Subject == "" {
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}
