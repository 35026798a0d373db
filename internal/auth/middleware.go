package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Authenticate resolves a bearer token into claims stored on the request
// context. Requests without a token pass through anonymously so that the
// access policy, not the transport, decides what anonymous callers get.
// A token that is present but invalid is rejected with 401.
func Authenticate(m *JWTManager, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := TokenFromRequest(r, allowQuery)
			if err == ErrMissingToken {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				var claims *Claims
				claims, err = m.ValidateJWT(tokenStr)
				if err == nil {
					log.Debug().Str("user_id", claims.UserID).Str("role", claims.Role.String()).Msg("Authenticated request")
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}

			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected auth token")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Given token not valid for any token type"})
		})
	}
}
