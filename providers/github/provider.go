// Package github creates the client's private repository and seeds its
// readme from the outputs of the earlier provisioning steps.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const StepName = "github_repo"

const defaultBaseURL = "https://api.github.com"
const defaultTimeout = 15 * time.Second

const placeholderNote = "_not provisioned yet_"

type Provider struct {
	Adapter core.TransportAdapter
	Token   string
	Org     string
	BaseURL string
	Timeout time.Duration
}

func New(adapter core.TransportAdapter, token string, org string) *Provider {
	return &Provider{
		Adapter: adapter,
		Token:   strings.TrimSpace(token),
		Org:     strings.TrimSpace(org),
		BaseURL: defaultBaseURL,
		Timeout: defaultTimeout,
	}
}

func (*Provider) Name() string {
	return StepName
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

type createRepoResponse struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type createFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
}

func (p *Provider) Create(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
	if p == nil || p.Adapter == nil {
		return core.ProvisionResult{}, fmt.Errorf("github: transport adapter is required")
	}
	if strings.TrimSpace(p.Token) == "" {
		return core.ProvisionResult{}, fmt.Errorf("github: token is required")
	}
	if strings.TrimSpace(p.Org) == "" {
		return core.ProvisionResult{}, fmt.Errorf("github: organization is required")
	}
	company := strings.TrimSpace(req.Client.CompanyName)
	if company == "" {
		return core.ProvisionResult{}, fmt.Errorf("github: client company name is required")
	}

	repoName := slugify(company) + "-workspace"
	body, err := json.Marshal(createRepoRequest{
		Name:        repoName,
		Description: fmt.Sprintf("Workspace repository for %s", company),
		Private:     true,
	})
	if err != nil {
		return core.ProvisionResult{}, fmt.Errorf("github: encode repo request: %w", err)
	}

	res, err := p.Adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/orgs/%s/repos", strings.TrimRight(p.BaseURL, "/"), p.Org),
		Headers: p.headers(),
		Body:    body,
		Timeout: p.timeout(),
	})
	if err != nil {
		return core.ProvisionResult{}, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.ProvisionResult{}, fmt.Errorf("github: create repo returned status %d", res.StatusCode)
	}

	var decoded createRepoResponse
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		return core.ProvisionResult{}, fmt.Errorf("github: decode repo response: %w", err)
	}
	if strings.TrimSpace(decoded.Name) == "" {
		decoded.Name = repoName
	}

	readme := p.renderReadme(company, req.PriorOutputs)
	if err := p.seedReadme(ctx, decoded.Name, readme); err != nil {
		return core.ProvisionResult{}, err
	}

	repoURL := strings.TrimSpace(decoded.HTMLURL)
	if repoURL == "" {
		repoURL = fmt.Sprintf("https://github.com/%s/%s", p.Org, decoded.Name)
	}
	return core.ProvisionResult{
		OutputData: map[string]any{
			"repo_name": decoded.Name,
			"repo_url":  repoURL,
		},
	}, nil
}

// renderReadme references the earlier step outputs when they exist and
// falls back to generic placeholders when a sibling step failed.
func (p *Provider) renderReadme(company string, priorOutputs map[string]map[string]any) string {
	projectURL := outputString(priorOutputs, "linear_project", "project_url")
	if projectURL == "" {
		projectURL = placeholderNote
	}
	designURL := outputString(priorOutputs, "figma_file", "file_url")
	if designURL == "" {
		designURL = placeholderNote
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Workspace\n\n", company)
	b.WriteString("Welcome to your project workspace.\n\n")
	fmt.Fprintf(&b, "- Project board: %s\n", projectURL)
	fmt.Fprintf(&b, "- Design file: %s\n", designURL)
	return b.String()
}

func (p *Provider) seedReadme(ctx context.Context, repoName string, content string) error {
	body, err := json.Marshal(createFileRequest{
		Message: "Add workspace readme",
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
	})
	if err != nil {
		return fmt.Errorf("github: encode readme request: %w", err)
	}
	res, err := p.Adapter.Do(ctx, core.TransportRequest{
		Method: http.MethodPut,
		URL: fmt.Sprintf(
			"%s/repos/%s/%s/contents/README.md",
			strings.TrimRight(p.BaseURL, "/"),
			p.Org,
			repoName,
		),
		Headers: p.headers(),
		Body:    body,
		Timeout: p.timeout(),
	})
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("github: seed readme returned status %d", res.StatusCode)
	}
	return nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.Token,
		"Accept":        "application/vnd.github+json",
		"Content-Type":  "application/json",
	}
}

func (p *Provider) timeout() time.Duration {
	if p != nil && p.Timeout > 0 {
		return p.Timeout
	}
	return defaultTimeout
}

func outputString(outputs map[string]map[string]any, step string, key string) string {
	if len(outputs) == 0 {
		return ""
	}
	values, ok := outputs[step]
	if !ok {
		return ""
	}
	value, ok := values[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

var _ core.StepExecutor = (*Provider)(nil)
