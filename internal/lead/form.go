package lead

import (
	"errors"
	"strings"
	"time"

	"github.com/Rrens/kiwi-chat/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidLead is returned when required lead fields are blank
var ErrInvalidLead = errors.New("lead name and email are required")

// Form is the lead capture form as submitted by the visitor
type Form struct {
	Name    string `json:"name" validate:"required,max=200"`
	Company string `json:"company" validate:"max=200"`
	Email   string `json:"email" validate:"required,max=320"`
}

// Normalize returns the form with surrounding whitespace removed
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Company: strings.TrimSpace(f.Company),
		Email:   strings.TrimSpace(f.Email),
	}
}

// FieldErrors maps json field names to messages, for API responses
type FieldErrors map[string]string

// ValidationError carries per-field failures and matches ErrInvalidLead
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return ErrInvalidLead.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidLead
}

// Validate normalizes the form and checks it
func (f Form) Validate() (Form, error) {
	form := f.Normalize()

	if err := validate.Struct(form); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return form, err
		}

		fields := make(FieldErrors)
		for _, e := range validationErrors {
			field := strings.ToLower(e.Field())
			switch e.Tag() {
			case "required":
				fields[field] = "field is required"
			case "max":
				fields[field] = "must be at most " + e.Param() + " characters"
			default:
				fields[field] = "validation failed on " + e.Tag()
			}
		}
		return form, &ValidationError{Fields: fields}
	}

	return form, nil
}

// Lead converts a validated form into a captured lead
func (f Form) Lead(at time.Time) domain.Lead {
	return domain.Lead{
		Name:       f.Name,
		Company:    f.Company,
		Email:      f.Email,
		CapturedAt: at.UTC(),
	}
}

// Confirmation is the bot message appended once a lead is captured
func Confirmation(l domain.Lead) string {
	return "Thank you, " + l.Name + "! Our team will reach out to " + l.Email + " shortly to schedule a meeting."
}
