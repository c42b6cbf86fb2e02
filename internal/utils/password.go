package utils

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and checks passwords with bcrypt.
type PasswordHasher struct {
	Cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{Cost: 12}
}

// Hash hashes a given password using bcrypt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	return string(bytes), err
}

// Check compares a plain password with its hashed version. An empty hash never matches.
func (h *PasswordHasher) Check(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
