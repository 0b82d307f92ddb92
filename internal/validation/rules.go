// Package validation collects field errors for request payloads.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError is a single rule violation. Message is user-facing.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// Errors is the error returned by Validator.Err. Its Error() is the first
// message so it can be shown directly in an inline banner.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	return e[0].Message
}

// First returns the first violation.
func (e Errors) First() FieldError {
	if len(e) == 0 {
		return FieldError{}
	}
	return e[0]
}

// AsErrors extracts validation errors from err, if any.
func AsErrors(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs, true
	}
	return nil, false
}

// New returns a single-field validation error.
func New(field, message string) error {
	return Errors{{Field: field, Message: message}}
}

type Validator struct {
	errors Errors
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, message string) *Validator {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
	return v
}

// Check records message against field when ok is false.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.add(field, message)
	}
	return v
}

func (v *Validator) Required(field, value, message string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, message)
}

func (v *Validator) MinLength(field, value string, min int) *Validator {
	return v.Check(utf8.RuneCountInString(strings.TrimSpace(value)) >= min,
		field, fmt.Sprintf("%s minimal %d karakter", field, min))
}

func (v *Validator) MaxLength(field, value string, max int) *Validator {
	return v.Check(utf8.RuneCountInString(value) <= max,
		field, fmt.Sprintf("%s maksimal %d karakter", field, max))
}

func (v *Validator) Matches(field, value string, re *regexp.Regexp, message string) *Validator {
	return v.Check(re.MatchString(value), field, message)
}

func (v *Validator) Email(field, value string) *Validator {
	at := strings.Index(value, "@")
	return v.Check(at > 0 && at < len(value)-1 && !strings.ContainsAny(value, " \t"),
		field, "Format email tidak valid")
}

func (v *Validator) NonNegative(field string, value int) *Validator {
	return v.Check(value >= 0, field, fmt.Sprintf("%s tidak boleh negatif", field))
}

func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	return v.add(field, fmt.Sprintf("%s harus salah satu dari: %s", field, strings.Join(allowed, ", ")))
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns the collected violations, or nil.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return v.errors
}
