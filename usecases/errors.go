package usecases

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrTaskNotFound      = errors.New("task not found")
	ErrUnauthorized      = errors.New("user not authorized to modify this task")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrUserUnresolved    = errors.New("user could not be resolved")
	ErrBadCredentials    = errors.New("invalid username or password")
	ErrUserDisabled      = errors.New("user account is disabled")
)

const passwordTooLong = "Password must be at most 72 bytes long"

// ValidationError carries one message per rejected form field, keyed by
// the lower-case field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ValidationFromValidator converts validator.ValidationErrors (from gin
// binding or a direct Struct call) into a ValidationError. Other errors
// come back as a single "form" entry.
func ValidationFromValidator(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError("form", "The submitted form could not be read.")
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = fieldMessage(field, fe.Tag(), fe.Param())
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	switch field + "/" + tag {
	case "username/required":
		return "Username is required"
	case "username/min", "username/max":
		return "Username must be between 3 and 50 characters"
	case "username/excludes":
		return "Username cannot contain @"
	case "password/required":
		return "Password is required"
	case "password/min":
		return "Password must be at least 6 characters long"
	case "password/max":
		return passwordTooLong
	case "email/required":
		return "Email is required"
	case "email/email":
		return "Email should be valid"
	case "description/required":
		return "Description cannot be empty"
	}
	if param != "" {
		return fmt.Sprintf("%s failed %s=%s", field, tag, param)
	}
	return fmt.Sprintf("%s failed %s", field, tag)
}
