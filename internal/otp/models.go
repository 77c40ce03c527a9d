package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"konto/internal/onboarding/models"
)

const (
	// CodeLength is the number of digits in a generated code. Leading zeros
	// are significant.
	CodeLength = 6

	// TTL is how long a challenge stays verifiable after issuance.
	TTL = 10 * time.Minute

	// MaxAttempts caps wrong guesses per challenge.
	MaxAttempts = 3
)

// ChallengeStatus tracks the lifecycle of one code. Verified, Expired and
// MaxAttemptsExceeded are terminal.
type ChallengeStatus string

const (
	ChallengeStatusPending             ChallengeStatus = "PENDING"
	ChallengeStatusVerified            ChallengeStatus = "VERIFIED"
	ChallengeStatusExpired             ChallengeStatus = "EXPIRED"
	ChallengeStatusMaxAttemptsExceeded ChallengeStatus = "MAX_ATTEMPTS_EXCEEDED"
)

// Challenge is one channel-scoped one-time code record. Only the code's hash
// is stored; the plaintext exists only in the issuance return value. Multiple
// challenges may exist per (application, channel) over time; only the most
// recently created one is eligible for verification, older ones are retained
// for audit.
type Challenge struct {
	ID            string
	ApplicationID string
	Channel       models.Channel
	CodeHash      string
	ExpiresAt     time.Time
	Attempts      int
	Status        ChallengeStatus
	CreatedAt     time.Time
	VerifiedAt    *time.Time
}

// GenerateCode produces a fixed-length numeric code from crypto/rand.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}

// HashCode derives the stored one-way hash of a code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// matchesCode compares the submitted code against the stored hash in constant
// time relative to the hash length, independent of where a mismatch occurs.
func (c *Challenge) matchesCode(code string) bool {
	submitted := sha256.Sum256([]byte(code))
	stored, err := hex.DecodeString(c.CodeHash)
	if err != nil || len(stored) != len(submitted) {
		return false
	}
	return subtle.ConstantTimeCompare(submitted[:], stored) == 1
}
