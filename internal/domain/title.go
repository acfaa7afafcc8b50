package domain

// Title is one tracked entity in the fixed registry. Immutable after
// configuration load; all content is matched against its keywords.
type Title struct {
	Slug     string   `yaml:"slug" json:"slug"`
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}
