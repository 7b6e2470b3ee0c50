package utils

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
)

// MinPasswordLength is the shortest password accepted before calling the gateway
const MinPasswordLength = 8

// OTPLength is the number of digits in a TOTP code
const OTPLength = 6

var (
	validName = regexp.MustCompile(`^[\p{L}\s'\-]+$`)
	otpCode   = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidationError("email", "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidationError("email", "invalid email format")
	}

	return nil
}

// ValidatePassword validates a password
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "password is required")
	}

	if len(password) < MinPasswordLength {
		return NewValidationError("password", "password must be at least 8 characters long")
	}

	return nil
}

// ValidateRequired validates that a string is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fieldName, fieldName+" is required")
	}
	return nil
}

// ValidateName validates a person name field
func ValidateName(name, fieldName string) error {
	if err := ValidateRequired(name, fieldName); err != nil {
		return err
	}

	if len(name) > 100 {
		return NewValidationError(fieldName, fieldName+" must be less than 100 characters")
	}

	if !validName.MatchString(name) {
		return NewValidationError(fieldName, fieldName+" contains invalid characters")
	}

	return nil
}

// ValidateServerURL validates the gateway base URL
func ValidateServerURL(raw string) error {
	if err := ValidateRequired(raw, "server.url"); err != nil {
		return err
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("server.url", "invalid URL format")
	}

	return nil
}

// ValidateOTPCode validates a complete six-digit TOTP code
func ValidateOTPCode(code string) error {
	if !otpCode.MatchString(code) {
		return NewValidationError("code", "code must be 6 digits")
	}
	return nil
}

// ValidateLogin validates login form input; only the first problem is reported
func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("password", "password is required")
	}
	return nil
}

// ValidateRegistration validates every registration field and reports all problems
func ValidateRegistration(email, password, firstName, lastName string) error {
	errs := NewMultiError()
	errs.Add(ValidateEmail(email))
	errs.Add(ValidatePassword(password))
	errs.Add(ValidateName(firstName, "firstName"))
	errs.Add(ValidateName(lastName, "lastName"))
	return errs.ErrorOrNil()
}
