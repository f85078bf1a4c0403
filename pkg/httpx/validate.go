package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// RequestError is a malformed or invalid request body. Details maps JSON
// field names to messages.
type RequestError struct {
	Message string
	Details map[string]string
}

func (e *RequestError) Error() string { return e.Message }

// Validate runs the struct's `validate` tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return &RequestError{Message: "request validation failed", Details: details}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "ulid":
		return "must be a valid identifier"
	case "dive":
		return "contains an invalid element"
	default:
		return "failed validation for " + fe.Tag()
	}
}

// DecodeJSON decodes the request body into dst and validates it. Unknown
// fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return &RequestError{Message: "invalid JSON in request body"}
	}
	return Validate(dst)
}

// WriteRequestError writes a 400 for a DecodeJSON failure.
func WriteRequestError(w http.ResponseWriter, err error) {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: rerr.Message,
			Details:          rerr.Details,
		})
		return
	}
	WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
}
