package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NormalizeText case-folds, strips punctuation, and collapses whitespace so
// that incidental formatting differences between sources do not change the
// fingerprint. "Cars & Coffee!" and "cars   coffee" normalize identically.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint derives the dedup fingerprint from normalized name, date-only
// start date, and normalized city+state. The source URL never participates:
// two listings of the same event on different sites must collide here.
func Fingerprint(name string, startDate time.Time, city, state string) string {
	parts := []string{
		NormalizeText(name),
		startDate.Format("2006-01-02"),
		NormalizeText(city),
		NormalizeText(state),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
