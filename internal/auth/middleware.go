package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

const (
	// AuthTypeHeader is the HTTP header for specifying auth provider type
	AuthTypeHeader = "X-Auth-Type"

	// DefaultAuthType is used when X-Auth-Type header is not provided
	DefaultAuthType = TypeK8sSA
)

// Middleware creates an HTTP middleware that validates authentication on every request
func Middleware(log logr.Logger, providers map[string]AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				log.V(1).Info("auth failed", "error", err.Error())
				unauthorized(w, err.Error())
				return
			}

			authType := r.Header.Get(AuthTypeHeader)
			if authType == "" {
				authType = DefaultAuthType
			}

			provider, ok := providers[authType]
			if !ok {
				log.V(1).Info("auth failed", "error", "unknown auth type", "type", authType)
				unauthorized(w, fmt.Sprintf("unknown auth type %q", authType))
				return
			}

			identity, err := provider.Authenticate(r.Context(), token)
			if err != nil {
				log.Info("auth failed", "provider", authType, "error", err.Error())
				unauthorized(w, "authentication failed")
				return
			}

			log.V(1).Info("authenticated", "identity", identity.String())
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// unauthorized answers 401 with the API's error body.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(http.StatusUnauthorized),
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}

// extractBearerToken extracts the bearer token from the Authorization header
// Expected format: "Authorization: Bearer <token>"
func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}
	if !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("authorization scheme must be Bearer")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("empty bearer token")
	}

	return token, nil
}
