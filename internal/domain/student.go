package domain

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Student identifies who is taking a quiz.
type Student struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// Validate checks the identification form the same way the enrolment page does.
func (s Student) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(s.Name) == "" {
		fields["name"] = "Name is required"
	}
	switch {
	case strings.TrimSpace(s.Email) == "":
		fields["email"] = "Email is required"
	case !emailPattern.MatchString(s.Email):
		fields["email"] = "Please enter a valid email"
	}
	switch {
	case strings.TrimSpace(s.Mobile) == "":
		fields["mobile"] = "Mobile number is required"
	case len(digitsOnly(s.Mobile)) != 10:
		fields["mobile"] = "Please enter a valid 10-digit mobile number"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
