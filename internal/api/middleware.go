package api

import (
	"fmt"
	"net/http"
)

// errorHandler converts handler panics into a 500 response, logging the
// request that triggered them. The connection is closed since the response
// body may already be partially written.
func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}
				s.log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, err)

				errResp := NewInternalServerError(err)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// sessionUserId resolves the requester's identity from the session cookie.
func (s *ChatApp) sessionUserId(r *http.Request) (int, error) {
	cookie, err := r.Cookie(tokenCookieKey)
	if err != nil {
		return 0, fmt.Errorf("session cookie: %w", err)
	}

	return s.extractUserIdFromToken(cookie.Value)
}

// authMiddleware rejects requests without a valid session and stamps the
// user id into the request context. Authenticated responses are marked
// uncacheable.
func (s *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := s.sessionUserId(r)
		if err != nil {
			s.log.Printf("auth %s %s: %v", r.Method, r.URL.Path, err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next(w, r.WithContext(WithUserId(r.Context(), userId)))
	}
}
