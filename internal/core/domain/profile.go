package domain

import "strings"

// EntityPattern maps a request substring to a Targetprocess entity type.
// Patterns are checked in table order, so multi-word patterns must precede
// their substrings ("portfolio epic" before "epic").
type EntityPattern struct {
	Pattern string `yaml:"pattern"`
	Entity  string `yaml:"entity"`
}

// RetrievalProfile holds the per-category query-variant templates and the
// entity-name pattern table. Templates may reference {request} and {entity};
// both are substituted at retrieval time. The built-in profile can be
// overridden from a YAML file (config.LoadRetrievalProfile).
type RetrievalProfile struct {
	Categories     map[string][]string `yaml:"categories"`
	EntityPatterns []EntityPattern     `yaml:"entity_patterns"`
	DefaultEntity  string              `yaml:"default_entity"`
}

// DefaultRetrievalProfile returns the built-in query templates and entity
// pattern table.
func DefaultRetrievalProfile() RetrievalProfile {
	return RetrievalProfile{
		Categories: map[string][]string{
			CategoryCodePatterns: {
				"{request} javascript automation",
				"{entity} automation rule code",
				"javascript args.Current api calls",
				"automation rule javascript patterns",
			},
			CategoryEntityMetadata: {
				"{entity} fields properties metadata",
				"{entity} entity structure",
				"entity fields access patterns",
				"{entity} state transitions",
			},
			CategoryBusinessLogic: {
				"{request} workflow automation",
				"{request} business rules",
				"automation triggers conditions",
				"workflow state transitions",
			},
			CategoryErrorHandling: {
				"error handling automation rules",
				"try catch javascript automation",
				"validation error handling",
				"null check automation rules",
			},
		},
		EntityPatterns: []EntityPattern{
			{"user story", "UserStory"},
			{"userstory", "UserStory"},
			{"portfolio epic", "PortfolioEpic"},
			{"story", "UserStory"},
			{"bug", "Bug"},
			{"task", "Task"},
			{"feature", "Feature"},
			{"epic", "Epic"},
			{"release", "Release"},
			{"project", "Project"},
			{"request", "Request"},
			{"risk", "Risk"},
			{"impediment", "Impediment"},
		},
		DefaultEntity: "UserStory",
	}
}

// ExpandQueryTemplate substitutes {request} and {entity} placeholders.
func ExpandQueryTemplate(template, request, entity string) string {
	out := strings.ReplaceAll(template, "{request}", request)
	out = strings.ReplaceAll(out, "{entity}", entity)
	return strings.Join(strings.Fields(out), " ")
}

// ResolveEntityType extracts the target entity type from a request, checking
// the caller-supplied domain context first, then the pattern table in order.
// The first pattern contained in the request wins. Returns "" when nothing
// matches.
func (p RetrievalProfile) ResolveEntityType(request string, domainContext map[string]string) string {
	if v := strings.TrimSpace(domainContext["entityType"]); v != "" {
		return v
	}
	lower := strings.ToLower(request)

	for _, ep := range p.EntityPatterns {
		if strings.Contains(lower, ep.Pattern) {
			return ep.Entity
		}
	}
	return ""
}
