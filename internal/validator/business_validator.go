package validator

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateEvaluationSubmit validates evaluation submission rules. A comment
// date without comment text is meaningless and rejected. Whitespace-only
// comment text is treated as no comment, so it passes here and the service
// skips the insert.
func (bv *BusinessValidator) ValidateEvaluationSubmit(req *EvaluationSubmitRequest) ValidationErrors {
	errors := bv.Validate(req)

	if strings.TrimSpace(req.CommentText) == "" && req.CommentDate != "" {
		errors = append(errors, ValidationError{
			Field:   "comment_date",
			Message: "comment date requires comment text",
			Value:   req.CommentDate,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateResourceSubmit validates resource submission rules
func (bv *BusinessValidator) ValidateResourceSubmit(req *ResourceSubmitRequest) ValidationErrors {
	errors := bv.Validate(req)

	if strings.TrimSpace(req.FileName) == "" {
		errors = append(errors, ValidationError{
			Field:   "file_name",
			Message: "file name cannot be only whitespace",
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Rubric score validation (1-5 integers)
	bv.validate.RegisterValidation("score_range", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 1 && score <= 5
	})

	// Comment date validation (calendar date, no time component)
	bv.validate.RegisterValidation("evaluation_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})
}
