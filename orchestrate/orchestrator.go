// Package orchestrate runs the fixed client provisioning sequence with
// hard failure isolation between steps.
package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/google/uuid"
)

const defaultStepTimeout = 30 * time.Second

// Orchestrator executes every configured step exactly once per run, in
// order. A failing step is recorded and its siblings still execute; the
// run itself always completes. There are no orchestrator-level retries:
// recovery is an operator re-trigger.
type Orchestrator struct {
	Steps       []core.StepExecutor
	Runs        core.OnboardingRunStore
	Alerter     core.AdminAlerter
	StepTimeout time.Duration
	Service     *core.Service
	Now         func() time.Time
}

func NewOrchestrator(steps []core.StepExecutor, runs core.OnboardingRunStore, alerter core.AdminAlerter) *Orchestrator {
	return &Orchestrator{
		Steps:       append([]core.StepExecutor(nil), steps...),
		Runs:        runs,
		Alerter:     alerter,
		StepTimeout: defaultStepTimeout,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Start provisions a client. The returned run carries one StepResult
// per configured step; OverallSuccess is the conjunction of their
// successes. Only persistence failures surface as errors.
func (o *Orchestrator) Start(ctx context.Context, client core.Client, triggeringEventID string) (core.OnboardingRun, error) {
	if o == nil || len(o.Steps) == 0 {
		return core.OnboardingRun{}, fmt.Errorf("orchestrate: at least one step is required")
	}
	startedAt := o.now()

	run := core.OnboardingRun{
		ID:                uuid.NewString(),
		ClientID:          client.ID,
		TriggeringEventID: triggeringEventID,
		Status:            core.RunStatusNotStarted,
		StartedAt:         startedAt,
	}
	if err := run.TransitionTo(core.RunStatusRunning, startedAt); err != nil {
		return core.OnboardingRun{}, err
	}
	if o.Runs != nil {
		stored, err := o.Runs.Create(ctx, run)
		if err != nil {
			return core.OnboardingRun{}, err
		}
		run = stored
	}

	priorOutputs := map[string]map[string]any{}
	overall := true
	for _, step := range o.Steps {
		result := o.executeStep(ctx, step, core.ProvisionRequest{
			Client:       client,
			RunID:        run.ID,
			PriorOutputs: priorOutputs,
		})
		if result.Success {
			priorOutputs[result.StepName] = result.OutputData
		} else {
			overall = false
		}
		run.Steps = append(run.Steps, result)
	}

	run.OverallSuccess = overall
	if err := run.TransitionTo(core.RunStatusCompleted, o.now()); err != nil {
		return core.OnboardingRun{}, err
	}
	if o.Runs != nil {
		stored, err := o.Runs.Update(ctx, run)
		if err != nil {
			return core.OnboardingRun{}, err
		}
		run = stored
	}

	o.observe(ctx, startedAt, "onboarding_run", nil, map[string]any{
		"run_id":    run.ID,
		"client_id": run.ClientID,
		"success":   run.OverallSuccess,
	})

	if !run.OverallSuccess && o.Alerter != nil {
		if err := o.Alerter.Alert(ctx, run); err != nil {
			o.logError(ctx, "admin alert failed", map[string]any{
				"run_id": run.ID,
				"error":  err.Error(),
			})
		}
	}
	return run, nil
}

// Retrigger executes a fresh run for the client that owns an existing
// run. The original run record is preserved.
func (o *Orchestrator) Retrigger(ctx context.Context, runID string, clients core.ClientStore) (core.OnboardingRun, error) {
	if o == nil || o.Runs == nil {
		return core.OnboardingRun{}, fmt.Errorf("orchestrate: run store is required")
	}
	if clients == nil {
		return core.OnboardingRun{}, fmt.Errorf("orchestrate: client store is required")
	}
	previous, err := o.Runs.Get(ctx, runID)
	if err != nil {
		return core.OnboardingRun{}, err
	}
	client, err := clients.Get(ctx, previous.ClientID)
	if err != nil {
		return core.OnboardingRun{}, err
	}
	return o.Start(ctx, client, previous.TriggeringEventID)
}

func (o *Orchestrator) executeStep(ctx context.Context, step core.StepExecutor, req core.ProvisionRequest) (result core.StepResult) {
	result = core.StepResult{StepName: step.Name()}

	defer func() {
		if recovered := recover(); recovered != nil {
			result.Success = false
			result.Error = fmt.Sprintf("step panicked: %v", recovered)
			result.OutputData = nil
		}
	}()

	timeout := o.StepTimeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startedAt := o.now()
	out, err := step.Create(stepCtx, req)
	o.observe(ctx, startedAt, "onboarding_step", err, map[string]any{
		"run_id":    req.RunID,
		"client_id": req.Client.ID,
		"step":      step.Name(),
	})
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.OutputData = out.OutputData
	return result
}

func (o *Orchestrator) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if o == nil || o.Service == nil {
		return
	}
	o.Service.ObserveOperation(ctx, startedAt, operation, err, fields)
}

func (o *Orchestrator) logError(ctx context.Context, message string, fields map[string]any) {
	if o == nil || o.Service == nil {
		return
	}
	o.Service.LogError(ctx, message, fields)
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}
