package tslink

import (
	"fmt"
	"go/token"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeAccess               ErrorCode = "access"
	CodeInvalidConfiguration ErrorCode = "invalid_configuration"
	CodeMalformedSettings    ErrorCode = "malformed_settings"
	CodeIO                   ErrorCode = "io"
	CodeMalformedDirective   ErrorCode = "malformed_directive"
	CodeNotSupported         ErrorCode = "not_supported"
	CodeDuplicateEntity      ErrorCode = "duplicate_entity"
	CodeMissingParent        ErrorCode = "missing_parent"
	CodeUnidentified         ErrorCode = "unidentified"
	CodeUnknownBinding       ErrorCode = "unknown_binding"
	CodeIncomplete           ErrorCode = "incomplete"
	CodeAlreadyBound         ErrorCode = "already_bound" // Slot of a composite bound twice
	CodeFileNotFound         ErrorCode = "file_not_found"
	CodeRender               ErrorCode = "render"
)

// HintIgnore is attached to every CodeNotSupported error.
const HintIgnore = "mark the declaration with //tslink:bind ignore to skip it"

// Error is a generation failure. Every error aborts the run.
type Error struct {
	Code    ErrorCode
	Message string
	Pos     token.Position // zero when the failure has no source anchor
	Details map[string]string

	cause error
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new generation error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new generation error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// At returns a copy of the error anchored to pos.
// An error that already has a position keeps it; the innermost anchor is the most precise.
func (e *Error) At(pos token.Position) *Error {
	if e.Pos.IsValid() || !pos.IsValid() {
		return e
	}
	cp := *e
	cp.Pos = pos
	return &cp
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	cp := *e
	cp.Details = details
	return &cp
}

// NotSupported reports a source shape that has no TypeScript mapping.
func NotSupported(pos token.Position, format string, args ...any) error {
	return errors.WithHint(Errorf(CodeNotSupported, format, args...).At(pos), HintIgnore)
}

// Wrap attaches a code to a lower-level error, keeping it as the cause.
func Wrap(code ErrorCode, err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.WithStackDepth(&Error{
		Code:    code,
		Message: message + ": " + err.Error(),
		cause:   err,
	}, 1)
}

// Anchor attaches pos to the generation error inside err, if it has none yet.
func Anchor(err error, pos token.Position) error {
	if err == nil || !pos.IsValid() {
		return err
	}
	var te *Error
	if errors.As(err, &te) {
		if te.Pos.IsValid() {
			return err
		}
		anchored := te.At(pos)
		hints := errors.GetAllHints(err)
		var out error = anchored
		for _, h := range hints {
			out = errors.WithHint(out, h)
		}
		return out
	}
	return Errorf(CodeUnidentified, "%v", err).At(pos)
}

// CodeOf returns the code of the first generation error in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Hints returns the user-facing hints attached anywhere in err's chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}

// FromValidation maps validator errors to a single configuration error.
// Other errors are wrapped unchanged under CodeInvalidConfiguration.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return Wrap(CodeInvalidConfiguration, err, "invalid configuration")
	}
	details := make(map[string]string, len(valErrs))
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		msg := formatValidationError(ve)
		details[ve.Namespace()] = msg
		messages = append(messages, ve.Field()+": "+msg)
	}
	sort.Strings(messages)
	return &Error{
		Code:    CodeInvalidConfiguration,
		Message: strings.Join(messages, "; "),
		Details: details,
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", ve.Param())
	case "naming":
		return `must be a comma-separated list of "methods" and "fields"`
	case "endswith":
		return fmt.Sprintf("must end with %q", ve.Param())
	case "semver":
		return "must be a semantic version"
	default:
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
