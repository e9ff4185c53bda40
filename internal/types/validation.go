package types

import (
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "resumeforge/internal/errors"
)

// The min tags on JobContext and CoverLetterRequest must match these.
const (
	MinJobDescriptionLength = 50
	MinExperienceLength     = 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Field.tag" to the message shown to users.
var fieldMessages = map[string]string{
	"CompanyName.required":    "Company name is required",
	"RoleTitle.required":      "Role title is required",
	"JobDescription.min":      fmt.Sprintf("Job description must be at least %d characters", MinJobDescriptionLength),
	"CandidateName.required":  "Candidate name is required",
	"CandidateEmail.required": "Valid email is required",
	"CandidateEmail.email":    "Valid email is required",
	"CandidatePhone.required": "Phone number is required",
	"Experience.min":          fmt.Sprintf("Experience description must be at least %d characters", MinExperienceLength),
}

// Normalize trims all fields.
func (j JobContext) Normalize() JobContext {
	return JobContext{
		CompanyName:    strings.TrimSpace(j.CompanyName),
		RoleTitle:      strings.TrimSpace(j.RoleTitle),
		JobDescription: strings.TrimSpace(j.JobDescription),
	}
}

// Validate checks the job context after trimming.
func (j JobContext) Validate() error {
	return validateStruct(j.Normalize())
}

// ValidateJobDescription enforces the minimum description length.
func ValidateJobDescription(jd string) error {
	return validateField(strings.TrimSpace(jd), "min=50", "JobDescription")
}

// Normalize trims all fields.
func (c CoverLetterRequest) Normalize() CoverLetterRequest {
	return CoverLetterRequest{
		CompanyName:    strings.TrimSpace(c.CompanyName),
		RoleTitle:      strings.TrimSpace(c.RoleTitle),
		JobDescription: strings.TrimSpace(c.JobDescription),
		CandidateName:  strings.TrimSpace(c.CandidateName),
		CandidateEmail: strings.TrimSpace(c.CandidateEmail),
		CandidatePhone: strings.TrimSpace(c.CandidatePhone),
		Experience:     strings.TrimSpace(c.Experience),
	}
}

// Validate checks every field of the request after trimming. The first
// failing field, in declaration order, is reported.
func (c CoverLetterRequest) Validate() error {
	return validateStruct(c.Normalize())
}

func validateStruct(v any) error {
	return toAppError(validate.Struct(v))
}

func validateField(value, tag, field string) error {
	err := validate.Var(value, tag)
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		return validationError(field+"."+verrs[0].Tag(), err)
	}
	return toAppError(err)
}

func toAppError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewInternalError("VALIDATION_FAILED", "Request could not be validated", err)
	}
	fe := verrs[0]
	return validationError(fe.StructField()+"."+fe.Tag(), err)
}

func validationError(key string, cause error) error {
	msg, ok := fieldMessages[key]
	if !ok {
		msg = "Invalid request"
	}
	return apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, msg, cause).
		WithContext("rule", key)
}

// Preview returns the first n runes of text, with "..." appended when the
// text was truncated.
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
