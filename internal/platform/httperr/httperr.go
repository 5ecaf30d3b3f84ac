// Package httperr carries HTTP status codes through handler errors and renders them in the
// API's {code, message} body.
package httperr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// Response is the body of every error response.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HTTPError is an error with the status code it should be reported with.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

// New returns an HTTPError with code and message.
func New(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// Wrap returns an HTTPError with code and message wrapping err.
func Wrap(code int, message string, err error) *HTTPError {
	return &HTTPError{Code: code, Message: message, Err: err}
}

// ErrValidation is wrapped by every error returned from Validate and ParseBody.
var ErrValidation = errors.New("validation failed")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field errors are reported with their json names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks v against its validate tags. Every failing field is listed in the message.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = fieldMessage(fe)
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ";"))
}

// ParseBody decodes the JSON body of c into v and validates it.
// JSON bodies are decoded strictly: a key with no matching field is rejected as not allowed.
func ParseBody(c *fiber.Ctx, v any) error {
	if !strings.HasPrefix(utils.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEApplicationJSON) {
		if err := c.BodyParser(v); err != nil {
			return fmt.Errorf("%w: malformed request body: %w", ErrValidation, err)
		}
		return Validate(v)
	}
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return fmt.Errorf("%w: %s is not allowed", ErrValidation, field)
		}
		return fmt.Errorf("%w: malformed request body: %w", ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: malformed request body: trailing data", ErrValidation)
	}
	return Validate(v)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), rootName(fe))
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min", "gte":
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%q must be less than or equal to %s", field, fe.Param())
	case "uuid":
		return fmt.Sprintf("%q must be a valid GUID", field)
	case "url", "uri":
		return fmt.Sprintf("%q must be a valid uri", field)
	default:
		return fmt.Sprintf("%q failed %q check", field, fe.Tag())
	}
}

// rootName is the "Struct." prefix of a namespace like "Struct.extra_attributes[0].key".
func rootName(fe validator.FieldError) string {
	root, _, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return ""
	}
	return root + "."
}

// ErrorHandler renders handler errors as Response bodies: HTTPError with its code, validation
// failures as 422, fiber errors with theirs, and anything else as 500 "Unknown error (...)".
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code, msg := classify(err)
		method, path := utils.CopyString(c.Method()), utils.CopyString(c.Path())
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", method), zap.String("path", path), zap.Int("status", code), zap.Error(err))
		} else {
			log.Debug("request rejected",
				zap.String("method", method), zap.String("path", path), zap.Int("status", code), zap.Error(err))
		}
		return c.Status(code).JSON(Response{Code: code, Message: msg})
	}
}

func classify(err error) (int, string) {
	var he *HTTPError
	var fe *fiber.Error
	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.Is(err, ErrValidation):
		return fiber.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, fmt.Sprintf("Unknown error (%s)", err)
	}
}
