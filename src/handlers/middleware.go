package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/username/finvault/backend/src/config"
	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/utils"
)

type contextKey string

const userIDContextKey = contextKey("userID")

// UserScopingMiddleware resolves the acting user from the trusted header
// set by the authenticating gateway in front of this service. The service
// itself performs no authentication; requests that reach it without the
// header are rejected.
func UserScopingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerValue := r.Header.Get(config.Cfg.UserIDHeader)
		if headerValue == "" {
			logger.L.Debug("Missing user header", "header", config.Cfg.UserIDHeader, "path", r.URL.Path)
			utils.SendJSONError(w, "user identity header required", http.StatusUnauthorized)
			return
		}
		userID, err := strconv.ParseInt(headerValue, 10, 64)
		if err != nil {
			logger.L.Warn("Malformed user header", "header", config.Cfg.UserIDHeader, "value", headerValue)
			utils.SendJSONError(w, "malformed user identity header", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext retrieves the acting user's ID placed on the request
// context by UserScopingMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}
