package api

import (
	"context"
	"net/http"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/telemetry"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireUser resolves the authenticated user identity. The gateway in front
// of this service sets X-User-ID after session validation; a request without
// it is unauthenticated.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, apperr.New(apperr.KindUnauthorized, "missing user identity"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// rateLimit throttles ingest traffic per user.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.chargeLimiter(w, r, 1) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// chargeLimiter consumes cost tokens for the request's user and writes the
// 429 itself when the bucket cannot cover the cost. A limiter outage fails
// open: throttling is protection, not a correctness guarantee.
func (s *Server) chargeLimiter(w http.ResponseWriter, r *http.Request, cost int) bool {
	if s.limiter == nil {
		return true
	}
	allowed, _, err := s.limiter.AllowN(r.Context(), userFrom(r.Context()), cost)
	if err != nil {
		s.log.Warn("rate limiter unavailable", "error", err)
		return true
	}
	if !allowed {
		telemetry.RateLimitRejects.Inc()
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limited", Kind: apperr.KindValidation})
		return false
	}
	return true
}
