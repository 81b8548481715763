package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitchpath/hitchpath/internal/api/models"
	"github.com/hitchpath/hitchpath/internal/api/response"
)

// maxBodyBytes bounds request bodies; resumes are the largest.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// BodyError is a request body that could not be decoded or failed validation.
type BodyError struct {
	Detail string
	Fields []models.FieldError
}

func (e *BodyError) Error() string {
	return e.Detail
}

// DecodeJSONBody decodes the request body into dest and validates it.
// Unknown fields are ignored.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return &BodyError{Detail: "request body is required"}
		}
		return &BodyError{Detail: "invalid JSON body"}
	}
	if err := validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &BodyError{Detail: "validation error"}
		}
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{
				Field:   fieldPath(fe),
				Message: validationMessage(fe),
				Code:    fe.Tag(),
			})
		}
		return &BodyError{Detail: fields[0].Message, Fields: fields}
	}
	return nil
}

// decode decodes into dest and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	err := DecodeJSONBody(r, dest)
	if err == nil {
		return true
	}
	var be *BodyError
	if errors.As(err, &be) {
		response.BadRequest(w, r, be.Detail, be.Fields)
	} else {
		response.BadRequest(w, r, "invalid request body", nil)
	}
	return false
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email address."
	case "min":
		if fe.Field() == "password" {
			return "Password must be at least " + fe.Param() + " characters long."
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return field + " is invalid"
}
