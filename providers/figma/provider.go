// Package figma duplicates the design template file for a new client.
package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const StepName = "figma_file"

const defaultBaseURL = "https://api.figma.com/v1"
const defaultTimeout = 15 * time.Second

type Provider struct {
	Adapter         core.TransportAdapter
	AccessToken     string
	TemplateFileKey string
	BaseURL         string
	Timeout         time.Duration
}

func New(adapter core.TransportAdapter, accessToken string, templateFileKey string) *Provider {
	return &Provider{
		Adapter:         adapter,
		AccessToken:     strings.TrimSpace(accessToken),
		TemplateFileKey: strings.TrimSpace(templateFileKey),
		BaseURL:         defaultBaseURL,
		Timeout:         defaultTimeout,
	}
}

func (*Provider) Name() string {
	return StepName
}

type duplicateFileRequest struct {
	Name string `json:"name"`
}

type duplicateFileResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (p *Provider) Create(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
	if p == nil || p.Adapter == nil {
		return core.ProvisionResult{}, fmt.Errorf("figma: transport adapter is required")
	}
	if strings.TrimSpace(p.AccessToken) == "" {
		return core.ProvisionResult{}, fmt.Errorf("figma: access token is required")
	}
	if strings.TrimSpace(p.TemplateFileKey) == "" {
		return core.ProvisionResult{}, fmt.Errorf("figma: template file key is required")
	}
	company := strings.TrimSpace(req.Client.CompanyName)
	if company == "" {
		return core.ProvisionResult{}, fmt.Errorf("figma: client company name is required")
	}

	body, err := json.Marshal(duplicateFileRequest{
		Name: company + " Design System",
	})
	if err != nil {
		return core.ProvisionResult{}, fmt.Errorf("figma: encode duplicate request: %w", err)
	}

	res, err := p.Adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/files/%s/duplicate", strings.TrimRight(p.BaseURL, "/"), p.TemplateFileKey),
		Headers: map[string]string{
			"X-Figma-Token": p.AccessToken,
			"Content-Type":  "application/json",
		},
		Body:    body,
		Timeout: p.timeout(),
	})
	if err != nil {
		return core.ProvisionResult{}, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.ProvisionResult{}, fmt.Errorf("figma: duplicate file returned status %d", res.StatusCode)
	}

	var decoded duplicateFileResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return core.ProvisionResult{}, fmt.Errorf("figma: decode duplicate response: %w", err)
	}
	if strings.TrimSpace(decoded.Key) == "" {
		return core.ProvisionResult{}, fmt.Errorf("figma: file key missing from response")
	}

	fileURL := strings.TrimSpace(decoded.URL)
	if fileURL == "" {
		fileURL = "https://www.figma.com/file/" + decoded.Key
	}
	return core.ProvisionResult{
		OutputData: map[string]any{
			"file_key": decoded.Key,
			"file_url": fileURL,
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
