package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

// LoadRetrievalProfile returns the built-in retrieval profile, overlaid with
// the YAML file at path when one is configured. Categories present in the
// file replace the built-in template lists wholesale; entity patterns from
// the file take precedence over the built-in table. Omitted sections keep
// their defaults.
func LoadRetrievalProfile(path string) (domain.RetrievalProfile, error) {
	profile := domain.DefaultRetrievalProfile()
	if path == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read retrieval profile: %w", err)
	}

	var overlay domain.RetrievalProfile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return profile, fmt.Errorf("parse retrieval profile: %w", err)
	}

	for category, templates := range overlay.Categories {
		if len(templates) > 0 {
			profile.Categories[category] = templates
		}
	}
	// Overlay patterns keep their file order and are checked before the
	// built-ins; a pattern that already exists is replaced in place.
	var added []domain.EntityPattern
	for _, ep := range overlay.EntityPatterns {
		if ep.Pattern == "" || ep.Entity == "" {
			continue
		}
		replaced := false
		for i := range profile.EntityPatterns {
			if profile.EntityPatterns[i].Pattern == ep.Pattern {
				profile.EntityPatterns[i].Entity = ep.Entity
				replaced = true
				break
			}
		}
		if !replaced {
			added = append(added, ep)
		}
	}
	profile.EntityPatterns = append(added, profile.EntityPatterns...)
	if overlay.DefaultEntity != "" {
		profile.DefaultEntity = overlay.DefaultEntity
	}
	return profile, nil
}
