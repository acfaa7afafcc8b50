package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
	"time"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

// fingerprintLen is the number of hex characters kept from the digest.
// 128 bits is plenty for dedup across a handful of platforms.
const fingerprintLen = 32

// Fingerprint computes the deterministic content id for a raw record: a hash
// of source and external id, or of source, author, text, and timestamp when
// the platform provides no stable id.
func Fingerprint(raw domain.RawRecord) string {
	h := sha256.New()
	writeField(h, raw.Source)
	if raw.ExternalID != "" {
		writeField(h, raw.ExternalID)
	} else {
		writeField(h, raw.Author)
		writeField(h, strings.TrimSpace(raw.Text))
		writeField(h, raw.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

func writeField(h hash.Hash, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}

// Normalizer validates raw records against the title registry and produces
// canonical content items. Pure and total over well-formed input.
type Normalizer struct {
	registry *Registry
}

func NewNormalizer(registry *Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Normalize returns the canonical item for a raw record, or a rejection
// reason. It never persists anything; merging on fingerprint collision is the
// store's concern.
func (n *Normalizer) Normalize(raw domain.RawRecord) (*domain.ContentItem, domain.RejectReason) {
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		return nil, domain.RejectEmptyText
	}

	slug, ok := n.registry.Match(text, raw.TitleHint)
	if !ok {
		return nil, domain.RejectNoTitleMatch
	}

	return &domain.ContentItem{
		ID:         Fingerprint(raw),
		Source:     raw.Source,
		TitleSlug:  slug,
		Text:       text,
		Author:     raw.Author,
		CreatedAt:  raw.CreatedAt.UTC(),
		Engagement: raw.Engagement,
	}, domain.RejectNone
}
