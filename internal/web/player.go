package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PlayerCookie identifies a player across requests.
const PlayerCookie = "pai_player"

const playerCookieMaxAge = 365 * 24 * time.Hour

type contextKey int

const playerIDKey contextKey = iota

// PlayerFromContext returns the player id set by the player middleware.
func PlayerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(playerIDKey).(string)
	return id, ok && id != ""
}

// PlayerFromRequest is PlayerFromContext for a request.
func PlayerFromRequest(r *http.Request) (string, bool) {
	return PlayerFromContext(r.Context())
}

// playerMiddleware issues a player cookie on first contact and refreshes it
// afterwards.
func playerMiddleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(PlayerCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     PlayerCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(playerCookieMaxAge.Seconds()),
				Expires:  time.Now().Add(playerCookieMaxAge),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   secure,
			})

			ctx := context.WithValue(r.Context(), playerIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
