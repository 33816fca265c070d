package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "rollbook/pkg/domain-errors"
)

// ProvisionRequest is the body of POST /admin/provision.
type ProvisionRequest struct {
	Role     string `json:"role" validate:"required,oneof=student staff librarian"`
	FullName string `json:"full_name" validate:"required"`
	Grade    string `json:"grade"`
	Position string `json:"position"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// ResetRequest is the body of POST /admin/provision/reset. RecordID is the
// domain record id for students and staff, or the profile id for librarians.
type ResetRequest struct {
	Role     string `json:"role" validate:"required,oneof=student staff librarian"`
	RecordID string `json:"record_id" validate:"required,uuid"`
}

// validateRequest runs struct validation and flattens the field errors into a
// single validation-coded domain error.
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return dErrors.New(dErrors.CodeValidation, strings.Join(msgs, "; "))
	}
	return dErrors.New(dErrors.CodeBadRequest, "invalid request")
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "uuid":
		return field + " must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
