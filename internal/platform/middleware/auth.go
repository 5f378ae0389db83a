package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type requesterDIDKey struct{}

// GetRequesterDID retrieves the authenticated requester DID from the context.
func GetRequesterDID(ctx context.Context) string {
	if did, ok := ctx.Value(requesterDIDKey{}).(string); ok {
		return did
	}
	return ""
}

// RequireAuth validates a bearer JWT on requester-side endpoints and stores
// the token subject (the requester's DID) in the request context. Holder-side
// scan and respond endpoints stay public: a QR flow carries no requester
// credentials.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(signingKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				logger.WarnContext(ctx, "unauthorized access - token missing subject",
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "token missing subject")
				return
			}

			ctx = context.WithValue(ctx, requesterDIDKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
