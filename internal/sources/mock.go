package sources

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

// mockAdapter produces synthetic event listings for demos and tests. It is
// deterministic for a given key+params and makes no network calls.
type mockAdapter struct {
	key     string
	baseURL string
}

// NewMockAdapter returns an offline-safe adapter. baseURL is only used to
// synthesize listing URLs; an .invalid domain is a fine choice.
func NewMockAdapter(key, baseURL string) Adapter {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = "https://example-events.invalid"
	}
	return &mockAdapter{key: key, baseURL: strings.TrimRight(base, "/")}
}

func (m *mockAdapter) Key() string { return m.key }

var mockEventNames = []string{
	"Cars & Coffee",
	"Twilight Track Day",
	"Classic Auto Show",
	"Canyon Cruise Meetup",
	"Import Showcase",
	"Vintage Rally",
}

var mockEventTypes = []string{"car meet", "track day", "car show"}

func (m *mockAdapter) Fetch(ctx context.Context, params FetchParams) (FetchResult, error) {
	select {
	case <-ctx.Done():
		return FetchResult{}, ctx.Err()
	default:
	}

	city := strings.TrimSpace(params.Location)
	if city == "" {
		city = "Austin"
	}
	n := params.Limit
	if n <= 0 || n > len(mockEventNames) {
		n = len(mockEventNames)
	}
	start := params.RangeStart
	if start.IsZero() {
		start = time.Now().UTC()
	}

	// Deterministic pseudo-random from key+location so repeated runs of the
	// same job see identical listings (re-ingestion convergence holds).
	r := rand.New(rand.NewSource(int64(fnv64(m.key + "|" + city))))

	result := FetchResult{Events: make([]models.RawCandidate, 0, n)}
	for i := 0; i < n; i++ {
		name := mockEventNames[i%len(mockEventNames)]
		date := start.AddDate(0, 0, 7*(i+1)+r.Intn(3))
		id := fmt.Sprintf("%s-%02d", strings.ToLower(m.key), i+1)
		free := i%2 == 0
		cost := "Free to attend"
		if !free {
			cost = fmt.Sprintf("$%d entry", 10+5*r.Intn(4))
		}
		result.Events = append(result.Events, models.RawCandidate{
			Name:      name,
			EventType: mockEventTypes[i%len(mockEventTypes)],
			Scope:     "local",
			StartDate: date.Format("2006-01-02"),
			City:      city,
			SourceURL: m.baseURL + "/events/" + url.PathEscape(id),
			IsFree:    &free,
			CostText:  cost,
		})
	}
	return result, nil
}

// fnv64 is a simple 64-bit hash for deterministic mock data.
func fnv64(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
