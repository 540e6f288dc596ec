// Package auth contains handlers, services and models used to manage authentication
// and authorization of clinic users (admins, doctors and patients).
package auth

import "golang.org/x/crypto/bcrypt"

// EncryptPassword hashes the given password with bcrypt.
func EncryptPassword(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswords compares a given encrypted password and a string, in order to check
// their equivalences.
func ComparePasswords(hashedPass, plainPass string) bool {
	if hashedPass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPass), []byte(plainPass)) == nil
}
