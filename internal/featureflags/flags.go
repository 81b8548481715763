// Package featureflags provides runtime toggles for AI features and
// background work, stored in Postgres and cached in memory.
package featureflags

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagStructuredGeneration asks the LLM for JSON-mode output when
	// generating learning paths.
	FlagStructuredGeneration = "structured_generation"

	// FlagPregenerateMainPath publishes a background job to build the main
	// path as soon as a profile is complete.
	FlagPregenerateMainPath = "pregenerate_main_path"

	// FlagDisableChatbot turns the chatbot endpoint off.
	FlagDisableChatbot = "disable_chatbot"

	// FlagDisableResumeAI turns AI resume rewriting off.
	FlagDisableResumeAI = "disable_resume_ai"
)

// defaults holds every known flag and its value when no override is stored.
var defaults = map[string]bool{
	FlagStructuredGeneration: true,
	FlagPregenerateMainPath:  false,
	FlagDisableChatbot:       false,
	FlagDisableResumeAI:      false,
}

// Flag is a feature flag with its current value. UpdatedAt is zero for
// flags still at their default.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlagList is the admin listing of flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate is a single flag update.
type FlagUpdate struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// FlagUpdateRequest is the admin update body.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates" validate:"required,min=1,dive"`
	Reason  string       `json:"reason" validate:"required"`
}

// Bool interprets the value as a switch. JSON numbers and the strings
// "true"/"on"/"1" and "false"/"off"/"0" are accepted; anything else yields
// fallback.
func (f Flag) Bool(fallback bool) bool {
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(v) {
		case "true", "on", "1":
			return true
		case "false", "off", "0":
			return false
		}
	}
	return fallback
}

// Defaults returns every known flag at its default value, ordered by key.
func Defaults() []Flag {
	out := make([]Flag, 0, len(defaults))
	for _, key := range slices.Sorted(maps.Keys(defaults)) {
		out = append(out, Flag{Key: key, Value: defaults[key]})
	}
	return out
}

// IsKnown reports whether key is a flag this service understands.
func IsKnown(key string) bool {
	_, ok := defaults[key]
	return ok
}
