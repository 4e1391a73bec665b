package auth

import (
	"net/http"
	"strings"

	"github.com/samosalabs/licenseserver/pkg/response"
)

// BearerToken extracts the token from the Authorization header. Empty
// when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireUser resolves the bearer token to a Principal and stores it in
// the request context. Requests without a valid token get a 401.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.Identify(r.Context(), BearerToken(r))
		if err != nil {
			response.Error(w, response.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin is RequireUser plus an admin check; non-admins get a 403.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return s.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin {
			response.Error(w, response.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
