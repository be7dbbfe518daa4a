// Package crypto holds the primitives behind passwords, tokens and stored secrets.
package crypto

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor for new password hashes.
const PasswordCost = bcrypt.DefaultCost

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordNeedsRehash reports whether hash was made with a weaker cost than
// PasswordCost, or is not a bcrypt hash at all.
func PasswordNeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost < PasswordCost
}
