package middleware

import (
	"net/http"
	"strings"
)

// DefaultAllowedHeaders are the request headers browsers may send to the relay.
var DefaultAllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// CORS sets the cross-origin headers on every response, including errors.
// It does not answer preflight requests itself.
func CORS(allowOrigin string, allowHeaders []string) func(http.Handler) http.Handler {
	headers := strings.Join(allowHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			next.ServeHTTP(w, r)
		})
	}
}
