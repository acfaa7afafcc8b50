package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry([]domain.Title{
		{Slug: "wednesday", Name: "Wednesday", Keywords: []string{"wednesday", "wednesday addams"}},
		{Slug: "stranger-things", Name: "Stranger Things", Keywords: []string{"stranger things", "hawkins"}},
	})
	require.NoError(t, err)
	return reg
}

func testRaw() domain.RawRecord {
	return domain.RawRecord{
		Source:     "twitter",
		ExternalID: "tw-1001",
		TitleHint:  "wednesday",
		Text:       "Wednesday season two is great",
		Author:     "viewer42",
		CreatedAt:  time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC),
		Engagement: 12,
	}
}

func TestNormalize_Accepts(t *testing.T) {
	n := NewNormalizer(testRegistry(t))

	item, reason := n.Normalize(testRaw())

	require.Equal(t, domain.RejectNone, reason)
	require.NotNil(t, item)
	assert.Equal(t, "twitter", item.Source)
	assert.Equal(t, "wednesday", item.TitleSlug)
	assert.Equal(t, "Wednesday season two is great", item.Text)
	assert.Len(t, item.ID, 32)
}

func TestNormalize_Deterministic(t *testing.T) {
	n := NewNormalizer(testRegistry(t))

	first, _ := n.Normalize(testRaw())
	second, _ := n.Normalize(testRaw())

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, *first, *second)
}

func TestNormalize_RejectsEmptyText(t *testing.T) {
	n := NewNormalizer(testRegistry(t))

	raw := testRaw()
	raw.Text = "   \n\t "
	item, reason := n.Normalize(raw)

	assert.Nil(t, item)
	assert.Equal(t, domain.RejectEmptyText, reason)
}

func TestNormalize_RejectsNoTitleMatch(t *testing.T) {
	n := NewNormalizer(testRegistry(t))

	raw := testRaw()
	raw.Text = "nothing about any tracked show here"
	raw.TitleHint = ""
	item, reason := n.Normalize(raw)

	assert.Nil(t, item)
	assert.Equal(t, domain.RejectNoTitleMatch, reason)
}

func TestNormalize_TitleHintIsAdvisory(t *testing.T) {
	n := NewNormalizer(testRegistry(t))

	// Hint names a tracked title but the text does not mention it; the
	// registry match wins over the hint.
	raw := testRaw()
	raw.TitleHint = "stranger-things"
	item, reason := n.Normalize(raw)

	require.Equal(t, domain.RejectNone, reason)
	assert.Equal(t, "wednesday", item.TitleSlug)
}

func TestNormalize_HintBreaksKeywordOverlap(t *testing.T) {
	reg, err := NewRegistry([]domain.Title{
		{Slug: "dark", Name: "Dark", Keywords: []string{"dark"}},
		{Slug: "dark-desire", Name: "Dark Desire", Keywords: []string{"dark desire"}},
	})
	require.NoError(t, err)
	n := NewNormalizer(reg)

	raw := testRaw()
	raw.Text = "dark desire finale was wild"
	raw.TitleHint = "dark-desire"
	item, reason := n.Normalize(raw)

	require.Equal(t, domain.RejectNone, reason)
	assert.Equal(t, "dark-desire", item.TitleSlug)
}

func TestFingerprint_UsesExternalID(t *testing.T) {
	a := testRaw()
	b := testRaw()
	b.Text = "totally different text"
	b.Author = "someone_else"

	// Same source + external id collapse regardless of mutable fields.
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_FallsBackToContentHash(t *testing.T) {
	a := testRaw()
	a.ExternalID = ""
	b := a
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	c := a
	c.Text = a.Text + "!"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	d := a
	d.CreatedAt = a.CreatedAt.Add(time.Second)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(d))
}

func TestFingerprint_DistinguishesSources(t *testing.T) {
	a := testRaw()
	b := testRaw()
	b.Source = "reddit"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestNewRegistry_RejectsDuplicateSlug(t *testing.T) {
	_, err := NewRegistry([]domain.Title{
		{Slug: "dark", Keywords: []string{"dark"}},
		{Slug: "dark", Keywords: []string{"darker"}},
	})
	assert.Error(t, err)
}

func TestNewRegistry_RejectsEmpty(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)
}

func TestRegistry_MatchCaseInsensitive(t *testing.T) {
	reg := testRegistry(t)
	slug, ok := reg.Match("HAWKINS is in trouble again", "")
	require.True(t, ok)
	assert.Equal(t, "stranger-things", slug)
}
