package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
	errors []errors.ValidationError
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
		errors: make([]errors.ValidationError, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	return fv.RequiredWithCode(errors.ErrCodeValidationFailed)
}

// RequiredWithCode rejects empty strings and zero numbers. Whitespace-only strings count as empty.
func (fv *FieldValidator) RequiredWithCode(code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		message := fmt.Sprintf("%s is required", fv.FieldName)
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errors.NewValidationFieldError(fv.FieldName, message, code)
			}
		case int64:
			if v == 0 {
				return errors.NewValidationFieldError(fv.FieldName, message, code)
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return errors.NewValidationFieldError(fv.FieldName, message, code)
			}
		case nil:
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int64, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int64); ok && v < min {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be at least %d", fv.FieldName, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxInt(max int64, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int64); ok && v > max {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must not exceed %d", fv.FieldName, max), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) < min {
				message := fmt.Sprintf("%s must be at least %d characters", fv.FieldName, min)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// OneOf accepts only the listed string values.
func (fv *FieldValidator) OneOf(code errors.ErrorCode, allowed ...string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		s := fmt.Sprint(value)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		message := fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", "))
		return errors.NewValidationFieldError(fv.FieldName, message, code)
	})
	return fv
}

func (fv *FieldValidator) Email() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok {
			return nil
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Address != v {
			return errors.NewValidationFieldError(fv.FieldName, "Invalid email address", errors.ErrCodeInvalidEmail)
		}
		return nil
	})
	return fv
}

// PositiveDecimal parses a decimal string and requires it to be greater than zero.
func (fv *FieldValidator) PositiveDecimal(code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		s := strings.TrimSpace(fmt.Sprint(value))
		d, err := decimal.NewFromString(s)
		if err != nil {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be a number", fv.FieldName), code)
		}
		if !d.IsPositive() {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be greater than 0", fv.FieldName), code)
		}
		return nil
	})
	return fv
}

// Date requires a YYYY-MM-DD or RFC 3339 value that is not in the future. Empty values pass; pair with Required.
func (fv *FieldValidator) Date() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		v, ok := value.(string)
		if !ok || v == "" {
			return nil
		}
		t, err := ParseDate(v)
		if err != nil {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s must be a valid date", fv.FieldName), errors.ErrCodeValidationFailed)
		}
		if t.After(time.Now()) {
			return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s cannot be in the future", fv.FieldName), errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every rule in order. A field reports only its first failure.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}
