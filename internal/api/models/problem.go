package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, sent as application/problem+json.
// Error duplicates Detail, or Title when there is no detail, for clients
// that only read {"error": "..."}.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
	Error    string       `json:"error"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.hitchpath.com/problems/"

// Problem types.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeForbidden       = problemBase + "forbidden"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
	ProblemTypeTLSRequired     = problemBase + "tls-required"
	ProblemTypeUnsupportedType = problemBase + "unsupported-media-type"
)

// standard maps the statuses handlers answer with to their problem type and
// title.
var standard = map[int][2]string{
	http.StatusBadRequest:          {ProblemTypeValidation, "Validation error"},
	http.StatusUnauthorized:        {ProblemTypeUnauthorized, "Unauthorized"},
	http.StatusForbidden:           {ProblemTypeForbidden, "Forbidden"},
	http.StatusNotFound:            {ProblemTypeNotFound, "Not found"},
	http.StatusTooManyRequests:     {ProblemTypeTooManyRequests, "Too many requests"},
	http.StatusInternalServerError: {ProblemTypeInternal, "Internal server error"},
	http.StatusServiceUnavailable:  {ProblemTypeUnavailable, "Service unavailable"},
}

// NewProblem creates a Problem.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{Type: problemType, Title: title, Status: status, TraceID: traceID}
}

// ForStatus creates the standard problem for status. Statuses without a
// registered type get about:blank and the HTTP status text.
func ForStatus(status int, traceID, detail string) *Problem {
	kind, ok := standard[status]
	if !ok {
		kind = [2]string{"about:blank", http.StatusText(status)}
	}
	return NewProblem(kind[0], kind[1], status, traceID).WithDetail(detail)
}

// WithDetail sets the occurrence-specific message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem, echoing its trace ID as X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	if p.Error == "" {
		p.Error = p.Title
		if p.Detail != "" {
			p.Error = p.Detail
		}
	}
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return ForStatus(http.StatusBadRequest, traceID, detail).WithErrors(errors)
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return ForStatus(http.StatusUnauthorized, traceID, detail)
}

// NewForbidden creates a 403 problem.
func NewForbidden(traceID, detail string) *Problem {
	return ForStatus(http.StatusForbidden, traceID, detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return ForStatus(http.StatusNotFound, traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return ForStatus(http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return ForStatus(http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return ForStatus(http.StatusServiceUnavailable, traceID, detail)
}
