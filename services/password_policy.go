package services

import (
	"unicode"
)

// MinPasswordLength is the shortest password accepted for staff accounts
const MinPasswordLength = 8

// ValidatePassword requires MinPasswordLength characters with at least one
// letter and one digit
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return NewValidationError("password must be at least 8 characters long", "password")
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return NewValidationError("password must contain a letter and a number", "password")
	}
	return nil
}
