package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"golang.org/x/crypto/bcrypt"
)

// commonPasswords is a short deny-list of passwords that show up first in
// every credential-stuffing dictionary.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {},
	"123456789": {}, "1234567890": {}, "qwerty123": {}, "qwertyuiop": {},
	"iloveyou": {}, "sunshine": {}, "football": {}, "baseball": {},
	"welcome1": {}, "letmein1": {}, "abc12345": {}, "11111111": {},
	"00000000": {}, "princess": {}, "dragon12": {}, "trustno1": {},
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// PasswordPolicy describes the strength rules applied at registration.
type PasswordPolicy struct {
	MinLength int
}

// Validate checks password against every rule and returns a
// *apperrors.ValidationError on the "password" field listing all failures.
func (p PasswordPolicy) Validate(password, username, email string) error {
	verr := apperrors.NewValidationError()

	if len([]rune(password)) < p.MinLength {
		verr.Add("password", fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		verr.Add("password", fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if password != "" && isNumeric(password) {
		verr.Add("password", "This password is entirely numeric.")
	}
	if tooSimilar(password, username, email) {
		verr.Add("password", "The password is too similar to the username or email.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		verr.Add("password", "This password is too common.")
	}

	return verr.OrNil()
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func tooSimilar(password, username, email string) bool {
	pw := strings.ToLower(password)
	if pw == "" {
		return false
	}
	user := strings.ToLower(username)
	mail := strings.ToLower(email)
	local, _, _ := strings.Cut(mail, "@")

	for _, attr := range []string{user, mail, local} {
		if attr != "" && pw == attr {
			return true
		}
	}
	return len(user) >= 3 && strings.Contains(pw, user)
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
