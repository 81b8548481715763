// Package models provides request and response bodies for the HitchPath API.
package models

// Message is the body of endpoints that only confirm an action.
type Message struct {
	Message string `json:"message"`
}
