package api

import "net/http"

// APIKey returns middleware that enforces API key authentication on every
// request to next.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the value of header is compared to key; a missing, empty, or
//     incorrect key returns 401.
func APIKey(mode, header, key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Non-apikey modes or an unconfigured key allow everything.
		if mode != "apikey" || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(header) != key {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
