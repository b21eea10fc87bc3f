// Package integrity computes and compares model digests and drives the
// bounded re-fetch loop on mismatch.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// RefetchBudget is how many additional fetch attempts a digest mismatch
// earns (4 total including the first). There is no backoff between
// attempts and no distinction between a transient blip and an actively
// wrong asset.
const RefetchBudget = 3

// Digest computes the SHA-256 digest of the complete byte sequence.
func Digest(data []byte) [domain.DigestSize]byte {
	return sha256.Sum256(data)
}

// Matches compares the digest of data against want. Comparison is of
// raw digest bytes, never their textual encoding.
func Matches(data []byte, want [domain.DigestSize]byte) bool {
	got := sha256.Sum256(data)
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// VerifyWithRetry checks data against want, re-fetching up to
// RefetchBudget more times on mismatch and recomputing the digest after
// each attempt. The loop terminates early the moment a re-fetch returns
// nothing. Returns the verified bytes, or false when every attempt
// mismatched or a re-fetch came back empty.
func VerifyWithRetry(data []byte, want [domain.DigestSize]byte, refetch func() []byte) ([]byte, bool) {
	if Matches(data, want) {
		return data, true
	}
	for i := 0; i < RefetchBudget; i++ {
		metrics.DigestRetries.Inc()
		data = refetch()
		if data == nil {
			return nil, false
		}
		if Matches(data, want) {
			return data, true
		}
	}
	return nil, false
}
