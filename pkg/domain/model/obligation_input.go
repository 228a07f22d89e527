package model

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// ObligationInput holds the owner-editable fields of an obligation
type ObligationInput struct {
	Title       string         `validate:"required,max=255"`
	Category    types.Category `validate:"category"`
	DeadlineAt  time.Time      `validate:"required"`
	Consequence string         `validate:"required,max=1000"`
	Severity    types.Severity `validate:"severity"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return types.Category(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return types.Severity(fl.Field().String()).IsValid()
	})
	return v
}

var inputMessages = map[string]string{
	"Title.required":       "Title is required",
	"Title.max":            "Title must be at most 255 characters",
	"Category.category":    "Category is invalid",
	"DeadlineAt.required":  "Deadline is required",
	"Consequence.required": "Consequence is required",
	"Consequence.max":      "Consequence must be at most 1000 characters",
	"Severity.severity":    "Severity is invalid",
}

// Validate checks the input and reports the first violation
func (in *ObligationInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return goerr.Wrap(err, "failed to validate obligation input")
	}

	fe := verrs[0]
	msg, ok := inputMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fe.Field() + " is invalid"
	}
	return goerr.Wrap(ErrInvalidInput, msg,
		goerr.V(FieldKey, fe.Field()),
		goerr.V(RuleKey, fe.Tag()),
		goerr.V(MessageKey, msg),
	)
}
