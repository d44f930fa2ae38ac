// Package dedup removes duplicates within a single fetch batch using the
// dedup fingerprint computed during canonicalization.
package dedup

import (
	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// BatchResult splits a batch into fingerprint-unique representatives and
// the candidates dropped as in-batch duplicates.
type BatchResult struct {
	Unique  []models.CanonicalCandidate
	Dropped []models.CanonicalCandidate
}

// DedupeBatch groups candidates by fingerprint and keeps one representative
// per group: the candidate with the most populated optional fields, and on a
// tie the earliest-discovered one. Output order follows first discovery of
// each fingerprint, so re-deduping an already-unique batch is a no-op.
func DedupeBatch(candidates []models.CanonicalCandidate) BatchResult {
	result := BatchResult{
		Unique:  make([]models.CanonicalCandidate, 0, len(candidates)),
		Dropped: []models.CanonicalCandidate{},
	}

	// fingerprint -> index into result.Unique
	seen := make(map[string]int, len(candidates))
	for _, cand := range candidates {
		at, ok := seen[cand.Fingerprint]
		if !ok {
			seen[cand.Fingerprint] = len(result.Unique)
			result.Unique = append(result.Unique, cand)
			continue
		}
		kept := result.Unique[at]
		if cand.OptionalFieldCount() > kept.OptionalFieldCount() {
			result.Unique[at] = cand
			result.Dropped = append(result.Dropped, kept)
		} else {
			result.Dropped = append(result.Dropped, cand)
		}
	}
	return result
}
