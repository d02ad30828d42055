package service

import (
	"errors"

	"go-brokerage-crm/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmailExists = errors.New("email already exists")
	ErrValidation  = errors.New("validation failed")
)

// ValidationError carries the validator's message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return invalid(validator.Describe(errs))
	}
	return nil
}

// notFound maps GORM's missing-row error onto ErrNotFound and passes the rest through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps a unique-index violation that raced past a pre-check.
func duplicate(err, sentinel error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sentinel
	}
	return err
}

func actorID(id uuid.UUID) string {
	return id.String()
}
