package orchestrate_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/orchestrate"
)

type scriptedStep struct {
	name string
	fn   func(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error)
}

func (s *scriptedStep) Name() string { return s.name }

func (s *scriptedStep) Create(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
	return s.fn(ctx, req)
}

type memoryRunStore struct {
	mu      sync.Mutex
	runs    map[string]core.OnboardingRun
	creates int
	updates int
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: map[string]core.OnboardingRun{}}
}

func (s *memoryRunStore) Create(_ context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.runs[run.ID] = run
	return run, nil
}

func (s *memoryRunStore) Update(_ context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.runs[run.ID] = run
	return run, nil
}

func (s *memoryRunStore) Get(_ context.Context, id string) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return core.OnboardingRun{}, fmt.Errorf("run %q not found", id)
	}
	return run, nil
}

func (s *memoryRunStore) GetByClient(_ context.Context, clientID string) ([]core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.OnboardingRun
	for _, run := range s.runs {
		if run.ClientID == clientID {
			out = append(out, run)
		}
	}
	return out, nil
}

type recordingAlerter struct {
	mu   sync.Mutex
	runs []core.OnboardingRun
	fail bool
}

func (a *recordingAlerter) Alert(_ context.Context, run core.OnboardingRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, run)
	if a.fail {
		return errors.New("alert channel unavailable")
	}
	return nil
}

func succeedingStep(name string, outputs map[string]any) *scriptedStep {
	return &scriptedStep{
		name: name,
		fn: func(context.Context, core.ProvisionRequest) (core.ProvisionResult, error) {
			return core.ProvisionResult{OutputData: outputs}, nil
		},
	}
}

func failingStep(name string, message string) *scriptedStep {
	return &scriptedStep{
		name: name,
		fn: func(context.Context, core.ProvisionRequest) (core.ProvisionResult, error) {
			return core.ProvisionResult{}, errors.New(message)
		},
	}
}

func testClient() core.Client {
	return core.Client{
		ID:           "cli_1",
		CompanyName:  "Acme Co",
		ContactName:  "Pat",
		ContactEmail: "pat@acme.test",
		Status:       core.ClientStatusActive,
	}
}

func TestStartRunsEveryStepAndPersists(t *testing.T) {
	runs := newMemoryRunStore()
	alerter := &recordingAlerter{}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		succeedingStep("linear_project", map[string]any{"project_url": "https://linear.app/acme"}),
		succeedingStep("figma_file", map[string]any{"file_url": "https://figma.com/file/1"}),
		succeedingStep("github_repo", map[string]any{"repo_url": "https://github.com/acme/ws"}),
	}, runs, alerter)

	run, err := orchestrator.Start(context.Background(), testClient(), "evt_1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !run.OverallSuccess {
		t.Fatalf("expected successful run")
	}
	if run.Status != core.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	if run.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
	if len(run.Steps) != 3 {
		t.Fatalf("expected 3 step results, got %d", len(run.Steps))
	}
	if runs.creates != 1 || runs.updates != 1 {
		t.Fatalf("expected one create and one update, got %d/%d", runs.creates, runs.updates)
	}
	if len(alerter.runs) != 0 {
		t.Fatalf("expected no alert for a clean run")
	}
}

func TestStartIsolatesStepFailures(t *testing.T) {
	runs := newMemoryRunStore()
	alerter := &recordingAlerter{}

	var figmaOutputs map[string]map[string]any
	githubStep := &scriptedStep{
		name: "github_repo",
		fn: func(_ context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
			figmaOutputs = req.PriorOutputs
			return core.ProvisionResult{OutputData: map[string]any{"repo_url": "https://github.com/acme/ws"}}, nil
		},
	}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		succeedingStep("linear_project", map[string]any{"project_url": "https://linear.app/acme"}),
		failingStep("figma_file", "duplicate request timed out"),
		githubStep,
	}, runs, alerter)

	run, err := orchestrator.Start(context.Background(), testClient(), "evt_1")
	if err != nil {
		t.Fatalf("step failure must not fail the run, got %v", err)
	}
	if run.OverallSuccess {
		t.Fatalf("expected overall failure")
	}
	if run.Status != core.RunStatusCompleted {
		t.Fatalf("expected run to complete anyway, got %s", run.Status)
	}
	if len(run.Steps) != 3 {
		t.Fatalf("expected every step to execute, got %d results", len(run.Steps))
	}
	if run.Steps[1].Success {
		t.Fatalf("expected figma step to fail")
	}
	if run.Steps[1].Error != "duplicate request timed out" {
		t.Fatalf("unexpected failure message %q", run.Steps[1].Error)
	}
	if !run.Steps[0].Success || !run.Steps[2].Success {
		t.Fatalf("expected siblings of the failed step to succeed")
	}

	if _, ok := figmaOutputs["linear_project"]; !ok {
		t.Fatalf("expected later steps to see earlier outputs")
	}
	if _, ok := figmaOutputs["figma_file"]; ok {
		t.Fatalf("failed step output must not reach later steps")
	}
}

func TestStartAlertsExactlyOnceOnFailure(t *testing.T) {
	runs := newMemoryRunStore()
	alerter := &recordingAlerter{}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		failingStep("linear_project", "api down"),
		failingStep("figma_file", "api down"),
	}, runs, alerter)

	run, err := orchestrator.Start(context.Background(), testClient(), "evt_1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(alerter.runs) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerter.runs))
	}
	if alerter.runs[0].ID != run.ID {
		t.Fatalf("expected alert for run %s, got %s", run.ID, alerter.runs[0].ID)
	}
	if got := len(alerter.runs[0].FailureSummaries()); got != 2 {
		t.Fatalf("expected two failure summaries, got %d", got)
	}
}

func TestStartAbsorbsAlerterError(t *testing.T) {
	runs := newMemoryRunStore()
	alerter := &recordingAlerter{fail: true}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		failingStep("linear_project", "api down"),
	}, runs, alerter)

	if _, err := orchestrator.Start(context.Background(), testClient(), "evt_1"); err != nil {
		t.Fatalf("alerter failure must not fail the run, got %v", err)
	}
}

func TestStartRecoversStepPanic(t *testing.T) {
	runs := newMemoryRunStore()
	panicking := &scriptedStep{
		name: "figma_file",
		fn: func(context.Context, core.ProvisionRequest) (core.ProvisionResult, error) {
			panic("nil provider client")
		},
	}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		panicking,
		succeedingStep("github_repo", map[string]any{"repo_url": "https://github.com/acme/ws"}),
	}, runs, &recordingAlerter{})

	run, err := orchestrator.Start(context.Background(), testClient(), "evt_1")
	if err != nil {
		t.Fatalf("panicking step must not fail the run, got %v", err)
	}
	if run.Steps[0].Success {
		t.Fatalf("expected panicking step to be recorded as failed")
	}
	if run.Steps[0].Error == "" {
		t.Fatalf("expected panic to be captured in the step error")
	}
	if !run.Steps[1].Success {
		t.Fatalf("expected the next step to run after the panic")
	}
}

func TestStartAppliesStepTimeout(t *testing.T) {
	runs := newMemoryRunStore()
	var sawDeadline bool
	step := &scriptedStep{
		name: "linear_project",
		fn: func(ctx context.Context, _ core.ProvisionRequest) (core.ProvisionResult, error) {
			_, sawDeadline = ctx.Deadline()
			return core.ProvisionResult{}, nil
		},
	}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{step}, runs, nil)
	orchestrator.StepTimeout = 10 * time.Second

	if _, err := orchestrator.Start(context.Background(), testClient(), "evt_1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !sawDeadline {
		t.Fatalf("expected each step to run under a deadline")
	}
}

func TestStartRequiresSteps(t *testing.T) {
	orchestrator := orchestrate.NewOrchestrator(nil, newMemoryRunStore(), nil)
	if _, err := orchestrator.Start(context.Background(), testClient(), "evt_1"); err == nil {
		t.Fatalf("expected empty step list to be rejected")
	}
}

type memoryClientStore struct {
	clients map[string]core.Client
}

func (s *memoryClientStore) Create(_ context.Context, client core.Client) (core.Client, error) {
	s.clients[client.ID] = client
	return client, nil
}

func (s *memoryClientStore) Update(_ context.Context, client core.Client) (core.Client, error) {
	s.clients[client.ID] = client
	return client, nil
}

func (s *memoryClientStore) Get(_ context.Context, id string) (core.Client, error) {
	client, ok := s.clients[id]
	if !ok {
		return core.Client{}, fmt.Errorf("client %q not found", id)
	}
	return client, nil
}

func (s *memoryClientStore) GetByEmail(_ context.Context, email string) (core.Client, bool, error) {
	for _, client := range s.clients {
		if client.ContactEmail == email {
			return client, true, nil
		}
	}
	return core.Client{}, false, nil
}

func TestRetriggerStartsFreshRun(t *testing.T) {
	runs := newMemoryRunStore()
	clients := &memoryClientStore{clients: map[string]core.Client{"cli_1": testClient()}}
	orchestrator := orchestrate.NewOrchestrator([]core.StepExecutor{
		succeedingStep("linear_project", nil),
	}, runs, nil)

	first, err := orchestrator.Start(context.Background(), testClient(), "evt_1")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := orchestrator.Retrigger(context.Background(), first.ID, clients)
	if err != nil {
		t.Fatalf("retrigger: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a fresh run record")
	}
	if second.TriggeringEventID != "evt_1" {
		t.Fatalf("expected the original triggering event to carry over, got %q", second.TriggeringEventID)
	}

	preserved, err := runs.Get(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("original run must be preserved: %v", err)
	}
	if preserved.ID != first.ID {
		t.Fatalf("unexpected run %q", preserved.ID)
	}
}
