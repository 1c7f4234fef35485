package usersvc

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/mkrupp/taskapp/internal/domain"
)

const minPasswordLength = 7

const (
	msgNameRequired     = "Name is required!"
	msgEmailRequired    = "Email is required!"
	msgEmailInvalid     = "The email must be in the valid format!"
	msgEmailTaken       = "The email is already in use!"
	msgAgeNegative      = "The age must be a positive number!"
	msgPasswordRequired = "Password is required!"
	msgPasswordShort    = "The password must be at least 7 characters long!"
	msgPasswordWord     = `The password cannot contain the "password" word!`
)

// normalizeName trims name and requires it to be non-empty.
func normalizeName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", msgNameRequired
	}

	return name, ""
}

// normalizeEmail trims and lower-cases email and checks its format.
// Display names and addresses without a dotted domain are rejected.
func normalizeEmail(email string) (string, string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", msgEmailRequired
	}

	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email || parsed.Name != "" {
		return "", msgEmailInvalid
	}

	_, host, _ := strings.Cut(email, "@")
	if !strings.Contains(strings.Trim(host, "."), ".") {
		return "", msgEmailInvalid
	}

	return email, ""
}

// normalizePassword trims password and enforces the password policy.
func normalizePassword(password string) (string, string) {
	password = strings.TrimSpace(password)

	switch {
	case password == "":
		return "", msgPasswordRequired
	case utf8.RuneCountInString(password) < minPasswordLength:
		return "", msgPasswordShort
	case strings.Contains(strings.ToLower(password), "password"):
		return "", msgPasswordWord
	}

	return password, ""
}

func validateAge(age int) string {
	if age < 0 {
		return msgAgeNegative
	}

	return ""
}

// validateProfile normalizes a registration profile and collects every
// rejected field in a *domain.ValidationError.
func validateProfile(profile domain.UserProfile) (domain.UserProfile, error) {
	var (
		verr domain.ValidationError
		msg  string
	)

	if profile.Name, msg = normalizeName(profile.Name); msg != "" {
		verr.Add("name", msg)
	}

	if profile.Email, msg = normalizeEmail(profile.Email); msg != "" {
		verr.Add("email", msg)
	}

	if profile.Password, msg = normalizePassword(profile.Password); msg != "" {
		verr.Add("password", msg)
	}

	if msg = validateAge(profile.Age); msg != "" {
		verr.Add("age", msg)
	}

	return profile, verr.Err()
}
