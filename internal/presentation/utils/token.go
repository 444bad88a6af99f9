package utils

import (
	"context"
	"net/http"
	"strings"
)

// AuthTokenHeader carries the participant id handed out by join.
const AuthTokenHeader = "X-Auth-Token"

type userIDKey struct{}

// GetAuthToken returns the trimmed token or "" when the header is absent.
func GetAuthToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(AuthTokenHeader))
}

func SetAuthToken(w http.ResponseWriter, token string) {
	w.Header().Set(AuthTokenHeader, token)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the acting participant stored by the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
