package pathgen

import (
	"fmt"
	"strings"
)

// Failure reasons carried by GenerationError.
const (
	ReasonNoJSON            = "no JSON found"
	ReasonInvalidJSON       = "invalid JSON"
	ReasonSchemaViolation   = "schema violation"
	ReasonOracleUnavailable = "oracle unavailable"
)

// GenerationError reports why a reply could not be turned into a path.
type GenerationError struct {
	Reason     string
	Violations []string
	Err        error
}

func (e *GenerationError) Error() string {
	msg := "path generation failed: " + e.Reason
	if len(e.Violations) > 0 {
		msg += " (" + strings.Join(e.Violations, "; ") + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
