package models

import (
	"strings"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
)

// SubmissionKind names a lead-intake form.
type SubmissionKind string

const (
	KindContact  SubmissionKind = "contact"
	KindWaitlist SubmissionKind = "waitlist"
)

// DefaultWaitlistSource is recorded when the form does not say where it
// was opened from.
const DefaultWaitlistSource = "ios-release-modal"

// ContactSubmission is the demo-request form.
type ContactSubmission struct {
	Name          string `json:"name"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	CompanySize   string `json:"companySize"`
	PrimaryHazard string `json:"primaryHazard"`
	Message       string `json:"message,omitempty"`
}

func (s *ContactSubmission) Kind() SubmissionKind { return KindContact }

func (s *ContactSubmission) ContactEmail() string { return s.Email }

// Validate checks required fields in form order, then the email shape.
func (s *ContactSubmission) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"name", s.Name},
		{"company", s.Company},
		{"email", s.Email},
		{"role", s.Role},
		{"companySize", s.CompanySize},
		{"primaryHazard", s.PrimaryHazard},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return common.NewValidationError("Missing required field: " + f.name)
		}
	}
	if !common.LooksLikeEmail(s.Email) {
		return common.NewValidationError("Invalid email address.")
	}
	return nil
}

// WaitlistSubmission is the iOS release waitlist form.
type WaitlistSubmission struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Role         string `json:"role,omitempty"`
	Phone        string `json:"phone,omitempty"`
	TeamSize     string `json:"teamSize,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Source       string `json:"source,omitempty"`
}

func (s *WaitlistSubmission) Kind() SubmissionKind { return KindWaitlist }

func (s *WaitlistSubmission) ContactEmail() string { return s.Email }

func (s *WaitlistSubmission) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return common.NewValidationError("Missing required field: name")
	case strings.TrimSpace(s.Organization) == "":
		return common.NewValidationError("Missing required field: organization")
	case strings.TrimSpace(s.Email) == "":
		return common.NewValidationError("Missing required field: email")
	case !common.LooksLikeEmail(s.Email):
		return common.NewValidationError("Invalid email address.")
	}
	return nil
}

// SourceOrDefault returns the trimmed source or DefaultWaitlistSource.
func (s *WaitlistSubmission) SourceOrDefault() string {
	if src := strings.TrimSpace(s.Source); src != "" {
		return src
	}
	return DefaultWaitlistSource
}
