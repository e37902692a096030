package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a credential. Used offline to produce the
// value deployed as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a candidate against a stored bcrypt hash and
// returns nil on a match.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
