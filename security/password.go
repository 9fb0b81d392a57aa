package security

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the target cost factor; hashes below it are upgraded
// transparently on the next successful login.
const BcryptCost = 12

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// PasswordNeedsRehash reports whether the stored hash was produced
// with a cost below the current target. Unparseable hashes report
// true so they get replaced on the next login.
func PasswordNeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < BcryptCost
}

// StrengthResult carries the outcome of the password policy check.
type StrengthResult struct {
	Valid   bool
	Message string
}

// CheckPasswordStrength evaluates the policy rules in order; the first
// failing rule wins. No special-character rule is enforced.
func CheckPasswordStrength(password string) StrengthResult {
	if len(password) < 8 {
		return StrengthResult{Message: "Password must be at least 8 characters long."}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return StrengthResult{Message: "Password must contain at least one uppercase letter."}
	}
	if !hasLower {
		return StrengthResult{Message: "Password must contain at least one lowercase letter."}
	}
	if !hasDigit {
		return StrengthResult{Message: "Password must contain at least one digit."}
	}

	return StrengthResult{Valid: true, Message: "Password is valid."}
}
