package domain

import "time"

// RawRecord is what collectors hand the pipeline. TitleHint is advisory;
// the normalizer re-validates against the title registry.
type RawRecord struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id,omitempty"`
	TitleHint  string    `json:"title_hint,omitempty"`
	Text       string    `json:"text"`
	Author     string    `json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Engagement float64   `json:"engagement,omitempty"`
}

// ContentItem is one deduplicated unit of text evidence. ID is the content
// fingerprint; two ingestions of the same underlying post collapse to one item
// (last-write-wins on Engagement, first-write-wins on CreatedAt).
type ContentItem struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	TitleSlug  string    `json:"title_slug"`
	Text       string    `json:"text"`
	Author     string    `json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Engagement float64   `json:"engagement"`
}

// RejectReason classifies why a raw record failed normalization.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectEmptyText    RejectReason = "empty_text"
	RejectNoTitleMatch RejectReason = "no_title_match"
)
