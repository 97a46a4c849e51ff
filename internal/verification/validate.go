package verification

import (
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	"github.com/threeeaglesforge/leadverify/internal/domain"
)

const (
	maxEmailLength   = 254
	maxMessageLength = 5000
	maxFieldLength   = 200

	msgInvalidEmail   = "Please enter a valid email."
	msgShortMessage   = "Please enter a short message."
	msgMessageTooLong = "Your message is too long."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var emailFormat = validation.NewStringRuleWithError(
	emailPattern.MatchString,
	validation.NewError("validation_email_format", msgInvalidEmail),
)

// normalize trims every field, drops control characters and lower-cases the email.
func normalize(sub Submission) Submission {
	sub.Email = domain.NormalizeEmail(sub.Email)
	sub.FirstName = clean(sub.FirstName)
	sub.LastName = clean(sub.LastName)
	sub.Phone = clean(sub.Phone)
	sub.Message = clean(sub.Message)
	sub.Source = clean(sub.Source)
	return sub
}

func clean(s string) string {
	return strings.TrimSpace(removeControlChars(s))
}

// removeControlChars removes control characters except newline, carriage return and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// validate checks a normalized submission and returns the first problem as a *domain.ValidationError.
func validate(sub Submission, minMessageLength int) error {
	if err := validation.Validate(sub.Email,
		validation.Required.Error(msgInvalidEmail),
		validation.RuneLength(0, maxEmailLength).Error(msgInvalidEmail),
		emailFormat,
	); err != nil {
		return domain.NewValidationError("email", err.Error())
	}

	if sub.Kind == domain.SubjectKindLead {
		if err := validation.Validate(sub.Message,
			validation.Required.Error(msgShortMessage),
			validation.RuneLength(minMessageLength, 0).Error(msgShortMessage),
		); err != nil {
			return domain.NewValidationError("message", err.Error())
		}
		if err := validation.Validate(sub.Message,
			validation.RuneLength(0, maxMessageLength).Error(msgMessageTooLong),
		); err != nil {
			return domain.NewValidationError("message", err.Error())
		}
	}

	fields := []struct {
		name, value string
	}{
		{"firstName", sub.FirstName},
		{"lastName", sub.LastName},
		{"phone", sub.Phone},
		{"source", sub.Source},
	}
	for _, f := range fields {
		if err := validation.Validate(f.value,
			validation.RuneLength(0, maxFieldLength).Error(f.name+" is too long."),
		); err != nil {
			return domain.NewValidationError(f.name, err.Error())
		}
	}

	return nil
}
