// Package response writes JSON and problem+json bodies for handlers.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/hitchpath/hitchpath/internal/api/middleware"
	"github.com/hitchpath/hitchpath/internal/api/models"
)

// JSON writes data with the given status. A nil data writes no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, "", data)
}

// Created writes a 201, setting Location when it is not empty.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	write(w, r, http.StatusCreated, location, data)
}

// NoContent writes a bodiless 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusNoContent, "", nil)
}

func write(w http.ResponseWriter, r *http.Request, status int, location string, data any) {
	h := w.Header()
	if id := middleware.GetRequestID(r.Context()); id != "" {
		h.Set(middleware.RequestIDHeader, id)
	}
	if location != "" {
		h.Set("Location", location)
	}
	if data == nil {
		w.WriteHeader(status)
		return
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes p for the current request, filling in its instance and
// trace ID.
func Problem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	if p.TraceID == "" {
		p.TraceID = middleware.GetRequestID(r.Context())
	}
	p.WithInstance(r.URL.Path).Write(w)
}

func problem(w http.ResponseWriter, r *http.Request, newProblem func(traceID, detail string) *models.Problem, detail string) {
	Problem(w, r, newProblem(middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a 400 validation problem. fields may be nil.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, fields []models.FieldError) {
	Problem(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, fields))
}

// Unauthorized writes a 401 problem.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, models.NewUnauthorized, detail)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, models.NewNotFound, detail)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, models.NewInternalError, detail)
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	problem(w, r, models.NewServiceUnavailable, detail)
}
