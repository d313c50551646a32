// New passwords are hashed with bcrypt, which salts each hash and embeds the
// salt and cost in its output:
//
//	$2a$12$<22-char salt><31-char hash>
//
// Accounts imported from the previous deployment carry werkzeug-style
// PBKDF2 hashes ("pbkdf2:sha256:260000$<salt>$<hex digest>"). Verify accepts
// both formats so those users can still log in.

package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// defaultCost is the bcrypt work factor (~250ms per hash on a modern server).
const defaultCost = 12

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected
// instead of being silently truncated.
const MaxPasswordBytes = 72

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// The cost is a field so tests can use the bcrypt minimum (4).
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// newPasswordServiceWithCost creates a PasswordService with a custom cost.
// Unexported helper used by the tests in this package.
func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with the given bcrypt
// cost. Tests in other packages pass 4 to keep hashing fast.
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
// Returns an error if the plaintext is longer than MaxPasswordBytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored hash.
//
// Returns nil on match and ErrInvalidPassword on mismatch. Any other error
// means the stored hash itself is unusable.
func (p *PasswordService) Verify(stored, plaintext string) error {
	if strings.HasPrefix(stored, "pbkdf2:") {
		return verifyPBKDF2(stored, plaintext)
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// verifyPBKDF2 checks a werkzeug "pbkdf2:<alg>[:<iterations>]$<salt>$<hex>" hash.
func verifyPBKDF2(stored, plaintext string) error {
	method, rest, ok := strings.Cut(stored, "$")
	if !ok {
		return fmt.Errorf("auth: malformed pbkdf2 hash")
	}
	salt, digestHex, ok := strings.Cut(rest, "$")
	if !ok {
		return fmt.Errorf("auth: malformed pbkdf2 hash")
	}

	parts := strings.Split(method, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("auth: malformed pbkdf2 method %q", method)
	}

	var newHash func() hash.Hash
	switch parts[1] {
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	case "sha1":
		newHash = sha1.New
	default:
		return fmt.Errorf("auth: unsupported pbkdf2 digest %q", parts[1])
	}

	// werkzeug's historical default when the iteration count is omitted.
	iterations := 150000
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n <= 0 {
			return fmt.Errorf("auth: malformed pbkdf2 iterations %q", parts[2])
		}
		iterations = n
	}

	want, err := hex.DecodeString(digestHex)
	if err != nil {
		return fmt.Errorf("auth: malformed pbkdf2 digest: %w", err)
	}

	got := pbkdf2.Key([]byte(plaintext), []byte(salt), iterations, len(want), newHash)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
