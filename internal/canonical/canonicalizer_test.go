package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikearonapi/autorev-sub014/internal/models"
)

func validRaw() models.RawCandidate {
	return models.RawCandidate{
		Name:      "Cars & Coffee",
		Scope:     "local",
		StartDate: "2026-03-01",
		City:      "Austin",
		State:     "TX",
		SourceURL: "https://x.com/e1",
	}
}

func TestCanonicalizeValidCandidate(t *testing.T) {
	cand, rejection := Canonicalize(validRaw(), "carshowfinder")
	require.Nil(t, rejection)
	require.NotNil(t, cand)

	assert.Equal(t, "Cars & Coffee", cand.Name)
	assert.Equal(t, models.ScopeLocal, cand.Scope)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cand.StartDate)
	assert.Equal(t, "Austin", cand.City)
	require.NotNil(t, cand.State)
	assert.Equal(t, "TX", *cand.State)
	assert.Equal(t, "carshowfinder", cand.SourceKey)
	assert.NotEmpty(t, cand.Fingerprint)
}

func TestCanonicalizeRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RawCandidate)
		field  string
	}{
		{"missing name", func(r *models.RawCandidate) { r.Name = "  " }, "name"},
		{"missing city", func(r *models.RawCandidate) { r.City = "" }, "city"},
		{"missing scope", func(r *models.RawCandidate) { r.Scope = "" }, "scope"},
		{"missing start date", func(r *models.RawCandidate) { r.StartDate = "" }, "start_date"},
		{"missing source url", func(r *models.RawCandidate) { r.SourceURL = "" }, "source_url"},
		{"unparsable start date", func(r *models.RawCandidate) { r.StartDate = "soon" }, "start_date"},
		{"unknown scope", func(r *models.RawCandidate) { r.Scope = "planetary" }, "scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			cand, rejection := Canonicalize(raw, "carshowfinder")
			assert.Nil(t, cand)
			require.NotNil(t, rejection)
			assert.Equal(t, tt.field, rejection.Field)
		})
	}
}

func TestCanonicalizeRejectsEndBeforeStart(t *testing.T) {
	raw := validRaw()
	raw.EndDate = "2026-02-01"

	cand, rejection := Canonicalize(raw, "carshowfinder")
	assert.Nil(t, cand)
	require.NotNil(t, rejection)
	assert.Equal(t, "end_date", rejection.Field)
}

func TestCanonicalizeTrimsAndNormalizes(t *testing.T) {
	raw := validRaw()
	raw.Name = "  Cars & Coffee  "
	raw.City = " Austin "
	raw.State = "tx"
	raw.Scope = " Local "
	raw.Region = "Southwest"
	raw.CostText = "  $10 entry "

	cand, rejection := Canonicalize(raw, "carshowfinder")
	require.Nil(t, rejection)

	assert.Equal(t, "Cars & Coffee", cand.Name)
	assert.Equal(t, "Austin", cand.City)
	assert.Equal(t, "TX", *cand.State)
	assert.Equal(t, models.ScopeLocal, cand.Scope)
	assert.Equal(t, "southwest", *cand.Region)
	assert.Equal(t, "$10 entry", *cand.CostText)
}

func TestCanonicalizeCoordinatesRequireBoth(t *testing.T) {
	lat := 30.2672
	raw := validRaw()
	raw.Latitude = &lat

	cand, rejection := Canonicalize(raw, "carshowfinder")
	require.Nil(t, rejection)
	assert.Nil(t, cand.Latitude)
	assert.Nil(t, cand.Longitude)
}

func TestFingerprintIgnoresFormattingDifferences(t *testing.T) {
	a := validRaw()
	b := validRaw()
	b.Name = "cars   coffee!"
	b.SourceURL = "https://another-site.com/listing/99"

	ca, _ := Canonicalize(a, "s1")
	cb, _ := Canonicalize(b, "s2")
	require.NotNil(t, ca)
	require.NotNil(t, cb)

	// Same normalized name/date/city: same real-world event, regardless of
	// which site listed it.
	assert.Equal(t, ca.Fingerprint, cb.Fingerprint)
}

func TestFingerprintSensitiveToDateAndCity(t *testing.T) {
	base, _ := Canonicalize(validRaw(), "s1")

	otherDay := validRaw()
	otherDay.StartDate = "2026-03-02"
	cd, _ := Canonicalize(otherDay, "s1")
	assert.NotEqual(t, base.Fingerprint, cd.Fingerprint)

	otherCity := validRaw()
	otherCity.City = "Dallas"
	cc, _ := Canonicalize(otherCity, "s1")
	assert.NotEqual(t, base.Fingerprint, cc.Fingerprint)
}

func TestFingerprintDeterministic(t *testing.T) {
	first := Fingerprint("Spring Car Show", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "Austin", "TX")
	second := Fingerprint("spring   CAR show!!", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "austin", "tx")
	assert.Equal(t, first, second)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cars & Coffee", "cars coffee"},
		{"  SPRING   Car   Show  ", "spring car show"},
		{"track-day #3", "track day 3"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}
