package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ownerKeyType struct{}

var ownerKey ownerKeyType

var errNoOwnerClaim = errors.New("token missing owner claim")

// withAuth validates the bearer token and stores the owner claim in the
// request context. Tokens are HMAC-signed with the server secret.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		owner, err := parseOwner(raw, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey, owner)
		next(w, r.WithContext(ctx))
	}
}

func parseOwner(raw string, secret []byte) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errNoOwnerClaim
	}
	owner, ok := claims["owner"].(string)
	if !ok || owner == "" {
		return "", errNoOwnerClaim
	}
	return owner, nil
}

// ownerFromContext returns the authenticated owner ID, empty if the request
// skipped the auth middleware.
func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
