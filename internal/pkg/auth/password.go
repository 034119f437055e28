package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new hashes
const BcryptCost = 12

// HashPassword hashes a password for the admin_password_hash setting
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the bcrypt hash
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
