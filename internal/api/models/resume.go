package models

import "github.com/hitchpath/hitchpath/internal/resume"

// ResumeResponse wraps a stored resume.
type ResumeResponse struct {
	Message string         `json:"message,omitempty"`
	Resume  *resume.Resume `json:"resume"`
}

// ImproveRequest asks for an AI rewrite of one resume section.
type ImproveRequest struct {
	Current string `json:"current" validate:"required,max=8000"`
	Type    string `json:"type" validate:"required,max=100"`
}

// ImproveResponse is the rewritten section.
type ImproveResponse struct {
	Content string `json:"content"`
}
