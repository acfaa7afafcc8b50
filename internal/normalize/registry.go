package normalize

import (
	"strings"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
)

// Registry is the fixed set of tracked titles, indexed for keyword matching.
// Read-only after construction, safe to share across workers.
type Registry struct {
	titles []domain.Title
	bySlug map[string]domain.Title

	// keywords holds lowercased (keyword, slug) pairs in registry order so
	// matching is deterministic when keywords of different titles overlap.
	keywords []keywordEntry
}

type keywordEntry struct {
	keyword string
	slug    string
}

// NewRegistry builds a registry from the configured titles.
func NewRegistry(titles []domain.Title) (*Registry, error) {
	if len(titles) == 0 {
		return nil, apperrors.ValidationError("registry requires at least one title")
	}

	r := &Registry{
		titles: titles,
		bySlug: make(map[string]domain.Title, len(titles)),
	}
	for _, title := range titles {
		if _, exists := r.bySlug[title.Slug]; exists {
			return nil, apperrors.ValidationError("duplicate title slug").WithField("slug", title.Slug)
		}
		r.bySlug[title.Slug] = title
		for _, kw := range title.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			r.keywords = append(r.keywords, keywordEntry{keyword: kw, slug: title.Slug})
		}
	}

	return r, nil
}

// Titles returns the tracked titles in registry order.
func (r *Registry) Titles() []domain.Title {
	return r.titles
}

// Lookup returns the title for a slug.
func (r *Registry) Lookup(slug string) (domain.Title, bool) {
	title, ok := r.bySlug[slug]
	return title, ok
}

// Match returns the slug of the first title whose keyword appears in the
// text, case-insensitive. The collector's title hint is checked first so a
// correct hint wins over keyword overlap between titles.
func (r *Registry) Match(text, titleHint string) (string, bool) {
	lower := strings.ToLower(text)

	if titleHint != "" {
		if title, ok := r.bySlug[titleHint]; ok {
			for _, kw := range title.Keywords {
				if strings.Contains(lower, strings.ToLower(kw)) {
					return title.Slug, true
				}
			}
		}
	}

	for _, entry := range r.keywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.slug, true
		}
	}
	return "", false
}
