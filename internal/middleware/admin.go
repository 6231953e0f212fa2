package middleware

import (
	"net/http"

	"github.com/goccy/go-json"
)

// AdminOnly lets a request through when the admin_email query parameter
// names an allowed administrator.
func AdminOnly(isAdmin func(email string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdmin(r.URL.Query().Get("admin_email")) {
				writeJSONError(w, http.StatusForbidden, "Unauthorized access")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
