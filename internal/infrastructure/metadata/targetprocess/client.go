package targetprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akozhevnikov/rule-assistant/internal/core/domain"
)

const (
	defaultCacheTTL = 15 * time.Minute

	sourceLive    = "live_api"
	sourceDefault = "static_defaults"
)

// Client fetches entity field and state metadata from the Targetprocess
// REST API. Lookups are cached per entity type; any API failure falls back
// to fixed defaults so metadata can never sink a request.
type Client struct {
	domainURL   string
	accessToken string
	httpClient  *http.Client
	log         *slog.Logger

	cacheMu  sync.Mutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	now      func() time.Time
}

type cacheEntry struct {
	meta    *domain.EntityMetadata
	expires time.Time
}

func New(domainURL, accessToken string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		domainURL:   strings.TrimRight(domainURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         log,
		cache:       make(map[string]cacheEntry),
		cacheTTL:    defaultCacheTTL,
		now:         time.Now,
	}
}

func (c *Client) GetEntityMetadata(ctx context.Context, entityType string) (*domain.EntityMetadata, error) {
	if entityType == "" {
		return nil, fmt.Errorf("empty entity type")
	}

	if meta := c.cached(entityType); meta != nil {
		return meta, nil
	}

	meta, err := c.fetch(ctx, entityType)
	if err != nil {
		c.log.Warn("metadata_fetch_failed", "entity", entityType, "error", err)
		return defaultMetadata(entityType), nil
	}

	c.store(entityType, meta)
	return meta, nil
}

func (c *Client) cached(entityType string) *domain.EntityMetadata {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	entry, ok := c.cache[entityType]
	if !ok || c.now().After(entry.expires) {
		return nil
	}
	return entry.meta
}

func (c *Client) store(entityType string, meta *domain.EntityMetadata) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[entityType] = cacheEntry{meta: meta, expires: c.now().Add(c.cacheTTL)}
}

// fetch samples one live entity to learn its field names, then loads the
// workflow states of the entity type.
func (c *Client) fetch(ctx context.Context, entityType string) (*domain.EntityMetadata, error) {
	sample, err := c.fetchSampleEntity(ctx, entityType)
	if err != nil {
		return nil, err
	}

	standard, custom := splitFields(sample)
	states, processStates, err := c.fetchStates(ctx, entityType)
	if err != nil {
		// Field names alone are still worth using.
		c.log.Warn("metadata_states_fetch_failed", "entity", entityType, "error", err)
	}

	return &domain.EntityMetadata{
		EntityType:     entityType,
		StandardFields: standard,
		CustomFields:   custom,
		States:         states,
		ProcessStates:  processStates,
		Source:         sourceLive,
	}, nil
}

func (c *Client) fetchSampleEntity(ctx context.Context, entityType string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%ss?%s", c.domainURL, entityType, url.Values{
		"access_token": {c.accessToken},
		"take":         {"1"},
		"format":       {"json"},
	}.Encode())

	var response struct {
		Items []map[string]any `json:"Items"`
	}
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("fetch sample %s: %w", entityType, err)
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("no %s entities available to sample", entityType)
	}
	return response.Items[0], nil
}

func (c *Client) fetchStates(ctx context.Context, entityType string) ([]string, []domain.EntityState, error) {
	endpoint := fmt.Sprintf("%s/api/v1/EntityStates?%s", c.domainURL, url.Values{
		"access_token": {c.accessToken},
		"where":        {fmt.Sprintf("(EntityType.Name eq '%s')", entityType)},
		"include":      {"[Id,Name,IsInitial,IsPlanned,IsFinal]"},
		"format":       {"json"},
	}.Encode())

	var response struct {
		Items []struct {
			ID        int    `json:"Id"`
			Name      string `json:"Name"`
			IsInitial bool   `json:"IsInitial"`
			IsPlanned bool   `json:"IsPlanned"`
			IsFinal   bool   `json:"IsFinal"`
		} `json:"Items"`
	}
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, nil, fmt.Errorf("fetch %s states: %w", entityType, err)
	}

	names := make([]string, 0, len(response.Items))
	states := make([]domain.EntityState, 0, len(response.Items))
	for _, item := range response.Items {
		names = append(names, item.Name)
		states = append(states, domain.EntityState{
			ID:        item.ID,
			Name:      item.Name,
			IsInitial: item.IsInitial,
			IsPlanned: item.IsPlanned,
			IsFinal:   item.IsFinal,
		})
	}
	return names, states, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("targetprocess request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("targetprocess status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("targetprocess status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// splitFields partitions the keys of a sampled entity into standard fields
// and the names found under CustomFields.
func splitFields(sample map[string]any) (standard, custom []string) {
	for key, value := range sample {
		if key == "CustomFields" {
			custom = append(custom, customFieldNames(value)...)
			continue
		}
		if key == "ResourceType" {
			continue
		}
		standard = append(standard, key)
	}
	sort.Strings(standard)
	sort.Strings(custom)
	return standard, custom
}

func customFieldNames(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := field["Name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// defaultMetadata is the fixed fallback used when the live API is not
// reachable or not configured.
func defaultMetadata(entityType string) *domain.EntityMetadata {
	return &domain.EntityMetadata{
		EntityType: entityType,
		StandardFields: []string{
			"Id", "Name", "Description", "Project", "Team",
			"EntityState", "Owner", "CreateDate", "ModifyDate", "Tags",
		},
		CustomFields: []string{},
		States:       []string{"Open", "In Progress", "Done"},
		Source:       sourceDefault,
	}
}
