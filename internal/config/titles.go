package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
)

type titlesFile struct {
	Titles []domain.Title `yaml:"titles"`
}

// LoadTitles reads the tracked title registry from a YAML file. The registry
// is immutable after load.
func LoadTitles(path string) ([]domain.Title, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read titles file: %w", err)
	}

	var file titlesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse titles file: %w", err)
	}

	if len(file.Titles) == 0 {
		return nil, apperrors.ValidationError("titles file defines no titles").WithField("path", path)
	}

	seen := make(map[string]bool, len(file.Titles))
	for _, title := range file.Titles {
		if title.Slug == "" {
			return nil, apperrors.ValidationError("title with empty slug").WithField("name", title.Name)
		}
		if seen[title.Slug] {
			return nil, apperrors.ValidationError("duplicate title slug").WithField("slug", title.Slug)
		}
		seen[title.Slug] = true
		if len(title.Keywords) == 0 {
			return nil, apperrors.ValidationError("title has no match keywords").WithField("slug", title.Slug)
		}
	}

	return file.Titles, nil
}
