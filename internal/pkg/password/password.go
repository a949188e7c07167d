package password

import "golang.org/x/crypto/bcrypt"

// Hash produces a bcrypt hash suitable for the admin.password_hash config
// field. Exposed so an operator can mint the value with a one-off snippet.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored bcrypt hash.
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
