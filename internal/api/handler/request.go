package handler

import (
	"net/http"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
)

// userID is the caller set by middleware.Auth. Every bearer route runs
// behind Auth, so it is never empty there.
func userID(r *http.Request) string {
	return middleware.userID(r)
}
