package gojob

import (
	"context"

	"github.com/goliatone/go-onboarding/core"
)

// ObservingHook reports worker lifecycle events through the pipeline
// service so queue activity lands in the same logs and metrics as the
// webhook path.
type ObservingHook struct {
	Service *core.Service
}

func NewObservingHook(service *core.Service) *ObservingHook {
	return &ObservingHook{Service: service}
}

func (h *ObservingHook) OnStart(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "job started", event)
}

func (h *ObservingHook) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	if h == nil || h.Service == nil {
		return
	}
	h.Service.ObserveOperation(ctx, event.StartedAt, "job_"+jobID(event), nil, hookFields(event))
}

func (h *ObservingHook) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	if h == nil || h.Service == nil {
		return
	}
	h.Service.ObserveOperation(ctx, event.StartedAt, "job_"+jobID(event), event.Err, hookFields(event))
}

func (h *ObservingHook) OnRetry(ctx context.Context, event core.JobWorkerEvent) {
	h.log(ctx, "job retry scheduled", event)
}

func (h *ObservingHook) log(ctx context.Context, message string, event core.JobWorkerEvent) {
	if h == nil || h.Service == nil {
		return
	}
	h.Service.LogInfo(ctx, message, hookFields(event))
}

func jobID(event core.JobWorkerEvent) string {
	if event.Message == nil {
		return "unknown"
	}
	return event.Message.JobID
}

func hookFields(event core.JobWorkerEvent) map[string]any {
	fields := map[string]any{
		"attempt": event.Attempt,
	}
	if event.Message != nil {
		fields["job_id"] = event.Message.JobID
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	return fields
}

var _ core.JobWorkerHook = (*ObservingHook)(nil)
