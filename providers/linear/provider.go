// Package linear provisions a client project workspace in Linear.
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const StepName = "linear_project"

const defaultBaseURL = "https://api.linear.app"
const defaultTimeout = 15 * time.Second

type Provider struct {
	Adapter core.TransportAdapter
	APIKey  string
	TeamID  string
	BaseURL string
	Timeout time.Duration
}

func New(adapter core.TransportAdapter, apiKey string, teamID string) *Provider {
	return &Provider{
		Adapter: adapter,
		APIKey:  strings.TrimSpace(apiKey),
		TeamID:  strings.TrimSpace(teamID),
		BaseURL: defaultBaseURL,
		Timeout: defaultTimeout,
	}
}

func (*Provider) Name() string {
	return StepName
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TeamID      string `json:"teamId"`
}

type createProjectResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (p *Provider) Create(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
	if p == nil || p.Adapter == nil {
		return core.ProvisionResult{}, fmt.Errorf("linear: transport adapter is required")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return core.ProvisionResult{}, fmt.Errorf("linear: api key is required")
	}
	company := strings.TrimSpace(req.Client.CompanyName)
	if company == "" {
		return core.ProvisionResult{}, fmt.Errorf("linear: client company name is required")
	}

	body, err := json.Marshal(createProjectRequest{
		Name:        company + " Onboarding",
		Description: fmt.Sprintf("Client onboarding project for %s", company),
		TeamID:      p.TeamID,
	})
	if err != nil {
		return core.ProvisionResult{}, fmt.Errorf("linear: encode project request: %w", err)
	}

	res, err := p.Adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    strings.TrimRight(p.BaseURL, "/") + "/projects",
		Headers: map[string]string{
			"Authorization": p.APIKey,
			"Content-Type":  "application/json",
		},
		Body:    body,
		Timeout: p.timeout(),
	})
	if err != nil {
		return core.ProvisionResult{}, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.ProvisionResult{}, fmt.Errorf("linear: create project returned status %d", res.StatusCode)
	}

	var decoded createProjectResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return core.ProvisionResult{}, fmt.Errorf("linear: decode project response: %w", err)
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return core.ProvisionResult{}, fmt.Errorf("linear: project id missing from response")
	}

	return core.ProvisionResult{
		OutputData: map[string]any{
			"project_id":  decoded.ID,
			"project_url": decoded.URL,
		},
	}, nil
}

func (p *Provider) timeout() time.Duration {
	if p != nil && p.Timeout > 0 {
		return p.Timeout
	}
	return defaultTimeout
}

var _ core.StepExecutor = (*Provider)(nil)
