package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for the failure-path delay
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random jitter range in milliseconds
}

// TimingDelay pads failed logins with a small randomized delay so that
// "user not found" and "wrong password" take indistinguishable time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a random number in [0, max) using crypto/rand
func cryptoRandIntn(max int) int {
	if max <= 0 {
		return 0
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max))
}

// WaitOnFailure sleeps for base + jitter. Call only on the failure path.
func (td *TimingDelay) WaitOnFailure() {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	delay += time.Duration(cryptoRandIntn(td.config.RandomDelayMs)) * time.Millisecond

	if delay > 0 {
		time.Sleep(delay)
	}
}
