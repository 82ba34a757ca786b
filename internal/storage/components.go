package storage

import (
	"context"
	"fmt"
	"net/url"

	"keboola-mcp/pkg/models"
)

type rawComponent struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Type           string             `json:"type"`
	Description    string             `json:"description"`
	Configurations []rawConfiguration `json:"configurations"`
}

type rawConfiguration struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Version       int            `json:"version"`
	IsDisabled    bool           `json:"isDisabled"`
	IsDeleted     bool           `json:"isDeleted"`
	Created       string         `json:"created"`
	Configuration map[string]any `json:"configuration"`
}

func (c rawComponent) toModel() models.Component {
	return models.Component{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type,
		Description: c.Description,
	}
}

func (c rawConfiguration) toModel(componentID string) models.Configuration {
	return models.Configuration{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ComponentID: componentID,
		Version:     c.Version,
		IsDisabled:  c.IsDisabled,
		IsDeleted:   c.IsDeleted,
		Created:     c.Created,
		Content:     c.Configuration,
	}
}

// ListComponents retrieves components and their configurations, optionally
// filtered by component types (extractor, writer, application,
// transformation).
func (c *Client) ListComponents(ctx context.Context, types []string) ([]models.ComponentWithConfigurations, error) {
	params := url.Values{"include": {"configuration"}}
	for _, t := range types {
		params.Add("componentType", t)
	}

	var raw []rawComponent
	if err := c.raw.Get(ctx, "branch/default/components", params, &raw); err != nil {
		return nil, err
	}

	out := make([]models.ComponentWithConfigurations, len(raw))
	for i, comp := range raw {
		configs := make([]models.Configuration, len(comp.Configurations))
		for j, cfg := range comp.Configurations {
			configs[j] = cfg.toModel(comp.ID)
		}
		out[i] = models.ComponentWithConfigurations{
			Component:      comp.toModel(),
			Configurations: configs,
		}
	}
	return out, nil
}

// GetComponent retrieves one component by id.
func (c *Client) GetComponent(ctx context.Context, componentID string) (*models.Component, error) {
	var raw rawComponent
	if err := c.raw.Get(ctx, fmt.Sprintf("components/%s", componentID), nil, &raw); err != nil {
		return nil, err
	}
	component := raw.toModel()
	return &component, nil
}

// ListConfigurations retrieves all configurations of one component.
func (c *Client) ListConfigurations(ctx context.Context, componentID string) ([]models.Configuration, error) {
	var raw []rawConfiguration
	endpoint := fmt.Sprintf("branch/default/components/%s/configs", componentID)
	if err := c.raw.Get(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	configs := make([]models.Configuration, len(raw))
	for i, cfg := range raw {
		configs[i] = cfg.toModel(componentID)
	}
	return configs, nil
}

// GetConfiguration retrieves one configuration of a component.
func (c *Client) GetConfiguration(ctx context.Context, componentID, configurationID string) (*models.Configuration, error) {
	var raw rawConfiguration
	endpoint := fmt.Sprintf("branch/default/components/%s/configs/%s", componentID, configurationID)
	if err := c.raw.Get(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}
	configuration := raw.toModel(componentID)
	return &configuration, nil
}

// ConfigurationCreate is the payload for creating a new configuration.
type ConfigurationCreate struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Configuration any    `json:"configuration"`
}

// CreateConfiguration creates a new configuration for a component. There is
// no update-in-place; every call creates a fresh configuration.
func (c *Client) CreateConfiguration(ctx context.Context, componentID string, req ConfigurationCreate) (*models.Configuration, error) {
	var raw rawConfiguration
	endpoint := fmt.Sprintf("branch/default/components/%s/configs", componentID)
	if err := c.raw.Post(ctx, endpoint, req, &raw); err != nil {
		return nil, err
	}
	configuration := raw.toModel(componentID)
	c.log.Info("created configuration",
		"component", componentID, "configuration", configuration.ID)
	return &configuration, nil
}
