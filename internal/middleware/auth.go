package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

type contextKey int

const userIDKey contextKey = iota

// AuthMiddleware verifies Firebase ID tokens, the same identity the mobile
// app signs in with.
type AuthMiddleware struct {
	client *auth.Client
}

func NewAuthMiddleware(ctx context.Context, app *firebase.App) (*AuthMiddleware, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %w", err)
	}
	return &AuthMiddleware{client: client}, nil
}

// VerifyToken resolves a raw ID token to the signed-in user's uid.
func (am *AuthMiddleware) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := am.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("invalid ID token: %w", err)
	}
	return token.UID, nil
}

// RequireUser rejects requests without a valid bearer token and stores the
// uid on the request context.
func (am *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		idToken := strings.TrimPrefix(header, "Bearer ")
		if header == "" || idToken == header {
			unauthorized(w, "missing bearer token")
			return
		}

		userID, err := am.VerifyToken(r.Context(), idToken)
		if err != nil {
			log.Printf("🚫 Rejected request: %v", err)
			unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// UserID returns the authenticated uid set by RequireUser, or "".
func UserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
