package middleware

import (
	"mime"
	"net/http"

	"github.com/hitchpath/hitchpath/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers writing problems override it.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON answers 415 when a request with a body declares a media type
// other than application/json. A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if !hasBody(r.Method) || ct == "" {
			next.ServeHTTP(w, r)
			return
		}
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
			reject(w, r, models.NewProblem(models.ProblemTypeUnsupportedType, "Unsupported media type",
				http.StatusUnsupportedMediaType, "").WithDetail("Content-Type must be application/json."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
