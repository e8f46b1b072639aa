package validator

import (
	"fmt"
	"regexp"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the custom tags used by
// the session DTOs.
type Validator struct {
	validate *validator.Validate
}

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)
)

// New creates a Validator with all custom rules registered.
func New() *Validator {
	validate := validator.New()

	validate.RegisterValidation("answer_status", func(fl validator.FieldLevel) bool {
		switch models.AnswerStatus(fl.Field().String()) {
		case models.AnswerNotViewed,
			models.AnswerNotAnswered,
			models.AnswerAnswered,
			models.AnswerMarkForReview,
			models.AnswerAnsweredMarkForReview:
			return true
		}
		return false
	})

	validate.RegisterValidation("quiz_slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("session_code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("negative_marking_type", func(fl validator.FieldLevel) bool {
		switch models.NegativeMarkingType(fl.Field().String()) {
		case models.NegativeMarkingFixed, models.NegativeMarkingPercentage:
			return true
		}
		return false
	})

	return &Validator{validate: validate}
}

// Validate checks a struct against its validate tags. Returns nil when
// the struct is valid, otherwise a ValidationErrors value.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts a go-playground validation error into the
// package's ValidationErrors type.
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			errors = append(errors, ValidationError{
				Field:   fe.Field(),
				Message: messageForTag(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return errors
	}

	return ValidationErrors{{Field: "request", Message: err.Error()}}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "answer_status":
		return "must be a valid answer status"
	case "quiz_slug":
		return "must be a valid quiz slug"
	case "session_code":
		return "must be a valid session code"
	case "negative_marking_type":
		return "must be fixed or percentage"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
