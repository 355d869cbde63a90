package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/evn/grubana/internal/pkg/response"
)

const SweepTokenHeader = "X-Sweep-Token"

// SweepToken guards the cron endpoint. The scheduler sends the plain token,
// the server only knows its bcrypt hash. An empty hash disables the endpoint.
func SweepToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash == "" {
				response.RespondWithError(w, http.StatusNotFound, "Not found")
				return
			}
			token := r.Header.Get(SweepTokenHeader)
			if token == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				response.RespondWithError(w, http.StatusUnauthorized, "Invalid sweep token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
