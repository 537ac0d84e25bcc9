// Package schema validates candidate transactions before they are allowed
// to reach persistence.
package schema

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/korelabs/kore/internal/model"
)

// Candidate is an unvalidated transaction as produced by the classifier or
// a manual entry form. Amount is a positive magnitude; the sign convention
// is applied after validation, based on Type.
type Candidate struct {
	Type     string  `json:"type" validate:"required,oneof=income expense"`
	Category string  `json:"category" validate:"required,max=50"`
	Date     string  `json:"date" validate:"required,calendardate"`
	Note     string  `json:"note" validate:"omitempty,max=500"`
	Amount   float64 `json:"amount" validate:"required,gt=0,lte=1000000000"`
}

// ValidationError describes the first rule a candidate violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// messages maps field+tag pairs to the user-facing rule messages.
var messages = map[string]string{
	"Type.required":     "Transaction type is required",
	"Type.oneof":        "Transaction type must be income or expense",
	"Amount.required":   "Amount is required",
	"Amount.gt":         "Amount must be greater than 0",
	"Amount.lte":        "Amount is too large",
	"Category.required": "Category cannot be empty",
	"Category.max":      "Category name is too long",
	"Date.required":     "Invalid date format",
	"Date.calendardate": "Invalid date format",
	"Note.max":          "Note cannot exceed 500 characters",
}

// Validator validates transaction candidates against the field rules.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator with the calendar-date rule registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Validate checks candidate against the field rules and returns a normalized
// transaction on success. On failure only the first violated rule is
// surfaced; callers show a single message to the user at a time.
func (v *Validator) Validate(candidate Candidate) (model.Transaction, error) {
	if err := v.validate.Struct(candidate); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			first := errs[0]
			msg, found := messages[first.StructField()+"."+first.Tag()]
			if !found {
				msg = "Invalid " + strings.ToLower(first.StructField())
			}
			return model.Transaction{}, &ValidationError{Field: first.StructField(), Message: msg}
		}
		return model.Transaction{}, err
	}

	date, err := parseDate(candidate.Date)
	if err != nil {
		return model.Transaction{}, &ValidationError{Field: "Date", Message: "Invalid date format"}
	}

	return model.Transaction{
		Type:     model.TransactionType(candidate.Type),
		Amount:   candidate.Amount,
		Category: strings.TrimSpace(candidate.Category),
		Date:     date.Format(model.DateLayout),
		Note:     strings.TrimSpace(candidate.Note),
	}, nil
}

// parseDate accepts an ISO calendar date, tolerating a full timestamp, and
// rejects impossible dates like 2025-02-30.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
