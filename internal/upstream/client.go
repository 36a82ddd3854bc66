// Package upstream talks to the home-automation controller (Home
// Assistant): it assembles EntityDescriptors from the states and
// registry endpoints, and forwards device commands as service calls.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// state is one row of GET /api/states.
type state struct {
	EntityID   string         `json:"entity_id"`
	Attributes map[string]any `json:"attributes"`
}

// entityRegistryEntry is one row of GET /api/config/entity_registry.
type entityRegistryEntry struct {
	EntityID       string   `json:"entity_id"`
	Platform       string   `json:"platform"`
	EntityCategory string   `json:"entity_category"`
	DeviceID       string   `json:"device_id"`
	AreaID         string   `json:"area_id"`
	LabelIDs       []string `json:"labels"`
}

// registryEntry is one row of the area and label registries, both of
// which share the same {id, name} shape.
type registryEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is an authenticated HTTP client for a Home Assistant instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a Client. baseURL must not have a trailing slash. token is
// sent as a bearer credential on every request.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Connect validates that the controller is reachable and the token is
// accepted, by fetching /api/states.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.getJSON(ctx, "/api/states", true)
	return err
}

// ListEntityDescriptors composes /api/states with the entity, area, and
// label registries into a normalised EntityDescriptor per entity.
// Missing registry endpoints (404) are treated as empty registries.
func (c *Client) ListEntityDescriptors(ctx context.Context) ([]model.EntityDescriptor, error) {
	var states []state
	if err := c.getDecoded(ctx, "/api/states", true, &states); err != nil {
		return nil, fmt.Errorf("upstream: fetching states: %w", err)
	}

	var entities []entityRegistryEntry
	if err := c.getDecoded(ctx, "/api/config/entity_registry", false, &entities); err != nil {
		return nil, fmt.Errorf("upstream: fetching entity registry: %w", err)
	}
	entityByID := make(map[string]entityRegistryEntry, len(entities))
	for _, e := range entities {
		entityByID[e.EntityID] = e
	}

	var areas []registryEntry
	if err := c.getDecoded(ctx, "/api/config/area_registry", false, &areas); err != nil {
		return nil, fmt.Errorf("upstream: fetching area registry: %w", err)
	}
	areaNameByID := make(map[string]string, len(areas))
	for _, a := range areas {
		areaNameByID[a.ID] = Slugify(a.Name)
	}

	var labels []registryEntry
	if err := c.getDecoded(ctx, "/api/config/label_registry", false, &labels); err != nil {
		return nil, fmt.Errorf("upstream: fetching label registry: %w", err)
	}
	labelNameByID := make(map[string]string, len(labels))
	for _, l := range labels {
		labelNameByID[l.ID] = Slugify(l.Name)
	}

	descriptors := make([]model.EntityDescriptor, 0, len(states))
	for _, s := range states {
		domain, _, _ := strings.Cut(s.EntityID, ".")
		desc := model.EntityDescriptor{
			EntityID:   s.EntityID,
			Domain:     domain,
			Attributes: s.Attributes,
		}
		if reg, ok := entityByID[s.EntityID]; ok {
			desc.Platform = reg.Platform
			desc.EntityCategory = reg.EntityCategory
			desc.DeviceID = reg.DeviceID
			if name, ok := areaNameByID[reg.AreaID]; ok {
				desc.Area = name
			}
			for _, labelID := range reg.LabelIDs {
				if name, ok := labelNameByID[labelID]; ok {
					desc.Labels = append(desc.Labels, name)
				}
			}
		}
		if desc.Attributes == nil {
			desc.Attributes = map[string]any{}
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

// CallService invokes a Home Assistant service call for the given
// domain/service, merging entityID and any extra payload fields into
// the request body.
func (c *Client) CallService(ctx context.Context, domain, service, entityID string, extra map[string]any) error {
	body := map[string]any{"entity_id": entityID}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("upstream: encoding service call payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("upstream: building service call request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: calling service %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("upstream: service %s.%s returned status %d", domain, service, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if strings.ContainsAny(c.token, "\r\n") {
		return ErrInvalidHeader
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return nil
}

// getJSON fetches path and returns the raw body. requireOK controls
// whether a 404 is surfaced as an error (true) or as a nil body (false,
// used by the registry endpoints that may not exist on an older
// controller).
func (c *Client) getJSON(ctx context.Context, path string, requireOK bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && !requireOK {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream: GET %s returned status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// getDecoded fetches path and decodes it into out. A treated-as-empty
// 404 leaves out untouched (out must already be its zero value, e.g. a
// nil slice, which callers range over safely).
func (c *Client) getDecoded(ctx context.Context, path string, requireOK bool, out any) error {
	body, err := c.getJSON(ctx, path, requireOK)
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
