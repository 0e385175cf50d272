package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// NewOTP returns a 6-digit numeric code drawn uniformly from
// [100000, 999999] using crypto/rand.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// OTPMatches compares a stored code with a submitted one as strings.  A nil
// stored code never matches.
func OTPMatches(stored *string, submitted string) bool {
	return stored != nil && *stored != "" && *stored == submitted
}
