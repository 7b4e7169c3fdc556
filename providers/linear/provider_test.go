package linear_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/providers/linear"
)

type scriptedAdapter struct {
	requests []core.TransportRequest
	response core.TransportResponse
	err      error
}

func (a *scriptedAdapter) Kind() string { return "rest" }

func (a *scriptedAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	a.requests = append(a.requests, req)
	if a.err != nil {
		return core.TransportResponse{}, a.err
	}
	return a.response, nil
}

func TestCreateProject(t *testing.T) {
	adapter := &scriptedAdapter{
		response: core.TransportResponse{
			StatusCode: http.StatusCreated,
			Body:       []byte(`{"id":"proj_1","url":"https://linear.app/acme/project/proj_1"}`),
		},
	}
	provider := linear.New(adapter, "lin_api_key", "team_1")

	result, err := provider.Create(context.Background(), core.ProvisionRequest{
		Client: core.Client{CompanyName: "Acme Co"},
		RunID:  "run_1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.OutputData["project_id"] != "proj_1" {
		t.Fatalf("unexpected project id %v", result.OutputData["project_id"])
	}
	if result.OutputData["project_url"] != "https://linear.app/acme/project/proj_1" {
		t.Fatalf("unexpected project url %v", result.OutputData["project_url"])
	}

	req := adapter.requests[0]
	if req.Method != http.MethodPost || !strings.HasSuffix(req.URL, "/projects") {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	if req.Headers["Authorization"] != "lin_api_key" {
		t.Fatalf("unexpected auth header %q", req.Headers["Authorization"])
	}
	var body struct {
		Name   string `json:"name"`
		TeamID string `json:"teamId"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Name != "Acme Co Onboarding" {
		t.Fatalf("unexpected project name %q", body.Name)
	}
	if body.TeamID != "team_1" {
		t.Fatalf("unexpected team id %q", body.TeamID)
	}
}

func TestCreateProjectRejectsErrorStatus(t *testing.T) {
	adapter := &scriptedAdapter{
		response: core.TransportResponse{StatusCode: http.StatusUnauthorized, Body: []byte(`{}`)},
	}
	provider := linear.New(adapter, "lin_api_key", "team_1")

	if _, err := provider.Create(context.Background(), core.ProvisionRequest{
		Client: core.Client{CompanyName: "Acme Co"},
	}); err == nil {
		t.Fatalf("expected error status to surface")
	}
}

func TestCreateProjectRequiresID(t *testing.T) {
	adapter := &scriptedAdapter{
		response: core.TransportResponse{StatusCode: http.StatusOK, Body: []byte(`{"url":"https://linear.app/p"}`)},
	}
	provider := linear.New(adapter, "lin_api_key", "team_1")

	if _, err := provider.Create(context.Background(), core.ProvisionRequest{
		Client: core.Client{CompanyName: "Acme Co"},
	}); err == nil {
		t.Fatalf("expected missing project id to fail")
	}
}

func TestCreateProjectValidatesInputs(t *testing.T) {
	provider := linear.New(&scriptedAdapter{}, " ", "team_1")
	if _, err := provider.Create(context.Background(), core.ProvisionRequest{
		Client: core.Client{CompanyName: "Acme Co"},
	}); err == nil {
		t.Fatalf("expected missing api key to fail")
	}

	provider = linear.New(&scriptedAdapter{}, "lin_api_key", "team_1")
	if _, err := provider.Create(context.Background(), core.ProvisionRequest{}); err == nil {
		t.Fatalf("expected missing company name to fail")
	}
}
