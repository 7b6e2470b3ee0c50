package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@b.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Ada <a@b.com>"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret123"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Zoë", "firstName"))
	assert.NoError(t, ValidateName("O'Brien-Smith", "lastName"))
	assert.Error(t, ValidateName("", "firstName"))
	assert.Error(t, ValidateName("R2D2", "firstName"))
}

func TestValidateServerURL(t *testing.T) {
	assert.NoError(t, ValidateServerURL("http://localhost:8080/api/auth"))
	assert.NoError(t, ValidateServerURL("https://sam.example.com"))
	assert.Error(t, ValidateServerURL("ftp://sam.example.com"))
	assert.Error(t, ValidateServerURL("localhost"))
}

func TestValidateOTPCode(t *testing.T) {
	assert.NoError(t, ValidateOTPCode("012345"))
	assert.Error(t, ValidateOTPCode("12345"))
	assert.Error(t, ValidateOTPCode("12345a"))
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin("a@b.com", "x"))

	err := ValidateLogin("a@b.com", "")
	var valErr *ValidationError
	assert.True(t, errors.As(err, &valErr))
	assert.Equal(t, "password", valErr.Field)
}

func TestValidateRegistration_ReportsAll(t *testing.T) {
	err := ValidateRegistration("bad", "short", "", "Lovelace")

	var multi *MultiError
	assert.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 3)

	assert.NoError(t, ValidateRegistration("a@b.com", "secret123", "Ada", "Lovelace"))
}
