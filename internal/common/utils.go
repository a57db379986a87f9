package common

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter is the number of random bytes, so the resulting string
// is twice as long.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes read from crypto/rand.
// It returns nil if the random source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil
	}
	return b
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value produced by FormatTimestamp. RFC3339 values
// written by other producers are accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
