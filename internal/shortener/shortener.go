package shortener

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// DefaultLength is the length of generated short codes when none is configured.
const DefaultLength = 6

// Alphabet is the set of characters used for both generated and custom codes.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	minCustomLength = 3
	maxCustomLength = 32
)

var (
	ErrCustomCodeLength   = errors.New("custom code must be between 3 and 32 characters")
	ErrCustomCodeCharset  = errors.New("custom code may only contain letters and digits")
	ErrCustomCodeReserved = errors.New("custom code is reserved")
)

// reserved holds top-level route segments a custom code may not shadow.
var reserved = map[string]struct{}{
	"api":     {},
	"health":  {},
	"status":  {},
	"metrics": {},
	"static":  {},
	"favicon": {},
}

// GenerateShortCode creates a random short code of the given length.
// It does not check for collisions; that is handled by the caller.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	bytes := make([]byte, length)
	alphabetLength := big.NewInt(int64(len(Alphabet)))

	for i := range bytes {
		num, err := rand.Int(rand.Reader, alphabetLength)
		if err != nil {
			return "", err
		}
		bytes[i] = Alphabet[num.Int64()]
	}
	return string(bytes), nil
}

// ValidateCustomCode reports whether a user supplied code can be stored.
func ValidateCustomCode(code string) error {
	if len(code) < minCustomLength || len(code) > maxCustomLength {
		return ErrCustomCodeLength
	}
	if !InAlphabet(code) {
		return ErrCustomCodeCharset
	}
	if IsReserved(code) {
		return ErrCustomCodeReserved
	}
	return nil
}

// IsReserved reports whether code would shadow a top-level route.
func IsReserved(code string) bool {
	_, ok := reserved[strings.ToLower(code)]
	return ok
}

// InAlphabet reports whether every byte of s belongs to Alphabet.
func InAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
