package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/sdejongh/greenbox/pkg/models"
)

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// RegisterFields is the registration form
type RegisterFields struct {
	Username string
	Password string
	Nickname string
	Email    string
	Phone    string
}

// Validate checks the form before anything is sent
func (f RegisterFields) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"Username", f.Username},
		{"Password", f.Password},
		{"Nickname", f.Nickname},
		{"Email", f.Email},
		{"Phone", f.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &models.ValidationError{Field: r.field, Message: "is required"}
		}
	}

	addr, err := mail.ParseAddress(f.Email)
	if err != nil || addr.Address != f.Email {
		return &models.ValidationError{Field: "Email", Message: "invalid email address"}
	}
	if !phonePattern.MatchString(f.Phone) {
		return &models.ValidationError{Field: "Phone", Message: "invalid phone number"}
	}
	return nil
}
