package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/mir00r/edge-router/pkg/logger"
)

// AdminRole is the role a token must carry to use the admin API
const AdminRole = "routing-admin"

const claimsContextKey contextKey = "jwtClaims"

// JWTAuthConfig contains JWT authentication configuration. Tokens are HS256.
type JWTAuthConfig struct {
	Secret    string
	Issuer    string
	ClockSkew time.Duration
}

// JWTClaims represents JWT token claims
type JWTClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTAuthMiddleware guards the admin API with bearer tokens
type JWTAuthMiddleware struct {
	config JWTAuthConfig
	logger *logger.Logger
}

// NewJWTAuthMiddleware creates a new JWT authentication middleware
func NewJWTAuthMiddleware(config JWTAuthConfig, logger *logger.Logger) (*JWTAuthMiddleware, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	return &JWTAuthMiddleware{
		config: config,
		logger: logger.MiddlewareLogger("jwt_auth"),
	}, nil
}

// IssueToken signs an admin token for subject valid for ttl
func (jm *JWTAuthMiddleware) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Roles: []string{AdminRole},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    jm.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jm.config.Secret))
}

// JWTAuth returns the JWT authentication middleware
func (jm *JWTAuthMiddleware) JWTAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				jm.logger.WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"method": r.Method,
					"ip":     RemoteIP(r),
				}).Warn("JWT token missing")
				writeJWTError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := jm.validateToken(token)
			if err != nil {
				jm.logger.WithFields(map[string]interface{}{
					"error":  err.Error(),
					"path":   r.URL.Path,
					"method": r.Method,
					"ip":     RemoteIP(r),
				}).Warn("JWT validation failed")
				writeJWTError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			if !hasRole(claims.Roles, AdminRole) {
				jm.logger.WithFields(map[string]interface{}{
					"subject":    claims.Subject,
					"user_roles": claims.Roles,
					"path":       r.URL.Path,
				}).Warn("Insufficient roles for access")
				writeJWTError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			jm.logger.WithFields(map[string]interface{}{
				"subject": claims.Subject,
				"path":    r.URL.Path,
				"method":  r.Method,
			}).Debug("JWT authentication successful")

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
		})
	}
}

// ClaimsFrom returns the validated claims of an authenticated request
func ClaimsFrom(ctx context.Context) (*JWTClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*JWTClaims)
	return claims, ok
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// validateToken validates and parses the JWT token
func (jm *JWTAuthMiddleware) validateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jm.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("token has no expiry")
	}
	if time.Now().Add(-jm.config.ClockSkew).After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("token expired")
	}

	if jm.config.Issuer != "" && claims.Issuer != jm.config.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	return claims, nil
}

func hasRole(roles []string, required string) bool {
	for _, role := range roles {
		if role == required {
			return true
		}
	}
	return false
}

// writeJWTError writes a JWT error response
func writeJWTError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"error":   "authentication_failed",
		"message": message,
		"status":  statusCode,
	}

	json.NewEncoder(w).Encode(response)
}
