package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"rollbook/pkg/requestcontext"
)

// OperatorClaims represents the claims we expect from an operator token.
type OperatorClaims struct {
	OperatorID    string
	InstitutionID string
}

// TokenValidator validates a bearer token and extracts operator claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*OperatorClaims, error)
}

// RequireOperator rejects requests without a valid operator bearer token and
// injects the operator identity, institution, and raw token into the request
// context. Downstream account-service calls reuse the token.
func RequireOperator(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "operator token rejected",
					"error", err.Error(),
					"request_id", requestcontext.RequestID(r.Context()),
				)
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			ctx := requestcontext.WithOperator(r.Context(), claims.OperatorID, claims.InstitutionID)
			ctx = requestcontext.WithAuthToken(ctx, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTValidator validates HMAC-signed operator tokens.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type operatorJWTClaims struct {
	InstitutionID string `json:"institution_id"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies the token, returning the operator claims.
func (v *JWTValidator) ValidateToken(tokenString string) (*OperatorClaims, error) {
	var claims operatorJWTClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &OperatorClaims{
		OperatorID:    claims.Subject,
		InstitutionID: claims.InstitutionID,
	}, nil
}
