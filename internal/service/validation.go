package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Tomlord1122/qa-todo-api/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct validation and turns the first failing field
// into a client-facing validation error.
func validateRequest(req any, messages map[string]string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.ErrInternal.WithCause(fmt.Errorf("validating request: %w", err))
	}

	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return domain.NewValidationError(msg)
	}
	if msg, ok := messages[fe.Field()]; ok {
		return domain.NewValidationError(msg)
	}
	return domain.NewValidationError(fmt.Sprintf("%s is invalid", fe.Field()))
}
