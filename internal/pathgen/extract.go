package pathgen

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitchpath/hitchpath/internal/learning"
)

type envelope struct {
	Steps []learning.Step `json:"steps" validate:"required,min=1,unique=ID,dive"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// extractSteps pulls the outermost JSON object out of reply and returns its
// validated steps.
func extractSteps(v *validator.Validate, reply string) ([]learning.Step, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, &GenerationError{Reason: ReasonNoJSON}
	}

	var env envelope
	if err := json.Unmarshal([]byte(reply[start:end+1]), &env); err != nil {
		return nil, &GenerationError{Reason: ReasonInvalidJSON, Err: err}
	}

	if err := v.Struct(env); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, &GenerationError{Reason: ReasonSchemaViolation, Err: err}
		}
		return nil, &GenerationError{Reason: ReasonSchemaViolation, Violations: violations(verrs)}
	}

	for i := range env.Steps {
		if env.Steps[i].Tips == nil {
			env.Steps[i].Tips = []string{}
		}
		if env.Steps[i].Resources == nil {
			env.Steps[i].Resources = []learning.Resource{}
		}
	}
	return env.Steps, nil
}

func violations(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		// Drop the leading "envelope." so paths read like the JSON.
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "min":
			out = append(out, field+" must contain at least "+fe.Param()+" step")
		case "unique":
			out = append(out, field+" must have unique ids")
		default:
			out = append(out, field+" failed "+fe.Tag())
		}
	}
	return out
}
