package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// Global counter for generating unique sequential IDs in tests
	testSequence uint64

	// Base timestamp to make names shorter
	baseTimestamp = time.Now().UnixNano()
)

func init() {
	// Initialize with current timestamp to ensure uniqueness across test runs
	testSequence = uint64(baseTimestamp % 1000000)
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("test_claim") -> "test_claim_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueString generates a unique string identifier
// Useful when you need guaranteed uniqueness (uses UUID)
func UniqueString() string {
	return uuid.New().String()
}

// UniqueClaimText generates a unique claim statement for tests
// Example: UniqueClaimText() -> "Test claim 123456 resolves YES"
func UniqueClaimText() string {
	return fmt.Sprintf("Test claim %d resolves YES", NextSequence())
}

// UniqueSubmitterID generates a unique evidence submitter identifier
func UniqueSubmitterID() string {
	return fmt.Sprintf("submitter_%d", NextSequence())
}
