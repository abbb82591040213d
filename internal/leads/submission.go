package leads

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"contentops/internal/core"
)

// ErrInvalidLead wraps every validation failure.
var ErrInvalidLead = errors.New("invalid lead")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission is a lead form as posted by the site.
type Submission struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	CompanySize string `json:"companySize"`
	Phone       string `json:"phone,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Normalize trims every field and lowercases the email.
func (s Submission) Normalize() Submission {
	return Submission{
		FullName:    strings.TrimSpace(s.FullName),
		Email:       strings.ToLower(strings.TrimSpace(s.Email)),
		Company:     strings.TrimSpace(s.Company),
		Role:        strings.TrimSpace(s.Role),
		CompanySize: strings.TrimSpace(s.CompanySize),
		Phone:       strings.TrimSpace(s.Phone),
		Source:      strings.TrimSpace(s.Source),
	}
}

// Validate checks required fields and the email shape.
func (s Submission) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullName", s.FullName},
		{"email", s.Email},
		{"company", s.Company},
		{"role", s.Role},
		{"companySize", s.CompanySize},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidLead, strings.Join(missing, ", "))
	}
	if !emailPattern.MatchString(s.Email) {
		return fmt.Errorf("%w: invalid email address", ErrInvalidLead)
	}
	return nil
}

// Lead converts the submission, using defaultSource when none was posted.
func (s Submission) Lead(defaultSource string) core.Lead {
	source := s.Source
	if source == "" {
		source = defaultSource
	}
	return core.Lead{
		FullName:    s.FullName,
		Email:       s.Email,
		Company:     s.Company,
		Role:        s.Role,
		CompanySize: s.CompanySize,
		Phone:       s.Phone,
		Source:      source,
		Status:      core.LeadStatusNew,
	}
}
