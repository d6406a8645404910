package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"fleetpulse/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// MaxTimestamp is 9999-12-31T23:59:59.999Z in epoch milliseconds.
const MaxTimestamp = 253402300799999

// FieldError describes one violated field. Field uses the JSON path, e.g. "metrics.fuel".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// Validator checks payloads against their struct tags.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// deviceid rejects ids that sanitize to nothing, such as only spaces or
	// control characters.
	_ = v.RegisterValidation("deviceid", func(fl validator.FieldLevel) bool {
		return utils.SanitizeIdentifier(fl.Field().String()) != ""
	})
	// epochms accepts whole milliseconds that fit a storable instant.
	_ = v.RegisterValidation("epochms", func(fl validator.FieldLevel) bool {
		ts := fl.Field().Float()
		return ts == math.Trunc(ts) && ts <= MaxTimestamp
	})
	return &Validator{validate: v}
}

func (v *Validator) ValidateReading(p *ReadingPayload) error {
	if p == nil {
		return &ValidationError{Fields: []FieldError{{Field: "body", Message: "is required"}}}
	}
	return v.check(p)
}

func (v *Validator) ValidateRegistration(r *RegisterDeviceRequest) error {
	if r == nil {
		return &ValidationError{Fields: []FieldError{{Field: "body", Message: "is required"}}}
	}
	return v.check(r)
}

func (v *Validator) check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the struct type prefix from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "deviceid":
		return "must contain printable characters"
	case "epochms":
		return fmt.Sprintf("must be whole epoch milliseconds no greater than %d", int64(MaxTimestamp))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// DecodeError turns a JSON decoding failure into a ValidationError.
func DecodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ValidationError{Fields: []FieldError{{
			Field:   typeErr.Field,
			Message: "has an invalid type",
		}}}
	}
	return &ValidationError{Fields: []FieldError{{Field: "body", Message: "must be valid JSON"}}}
}
