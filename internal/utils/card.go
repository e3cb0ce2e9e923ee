package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CardBIN is the issuer prefix for all generated card numbers.
const CardBIN = "400000"

// GenerateCardNumber produces a 16-digit card number: the fixed BIN prefix,
// nine cryptographically random digits, and a Luhn check digit. Uniqueness is
// not guaranteed here; it is enforced by the unique fingerprint index at the
// storage layer, with the caller retrying on conflict.
func GenerateCardNumber() (string, error) {
	randomDigits := make([]byte, 9)
	if _, err := rand.Read(randomDigits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(CardBIN)
	for _, b := range randomDigits {
		builder.WriteByte(b%10 + '0')
	}
	number := builder.String()

	return number + string(luhnCheckDigit(number)+'0'), nil
}

// luhnCheckDigit computes the trailing check digit for a partial card number.
func luhnCheckDigit(number string) byte {
	sum := 0
	alternate := true
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if alternate {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alternate = !alternate
	}
	return byte((10 - sum%10) % 10)
}

// ValidLuhn reports whether a card number passes the Luhn checksum.
func ValidLuhn(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		digit := int(number[i] - '0')
		if alternate {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		alternate = !alternate
	}
	return sum%10 == 0
}

// FingerprintCardNumber returns a deterministic HMAC-SHA256 fingerprint of a
// card number. Unlike the nonce-randomized ciphertext, the fingerprint is
// stable per PAN, so the database can hold a unique index over it.
func FingerprintCardNumber(number, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(number))
	return hex.EncodeToString(h.Sum(nil))
}

// Last4 extracts the trailing four digits of a card number for display.
func Last4(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
