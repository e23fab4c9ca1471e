package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// TempPassword generates the temporary password mailed to admin-created
// accounts. The account stays inactive until the mandatory first-login
// password change.
func TempPassword() (string, error) {
	s, err := RandomHex(8)
	if err != nil {
		return "", err
	}
	// Mixed-case prefix keeps the generated value acceptable to common
	// complexity policies.
	return "Ey!" + s, nil
}
