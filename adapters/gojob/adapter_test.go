package gojob_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/adapters/gojob"
	"github.com/goliatone/go-onboarding/core"
)

func TestNormalizeAttemptCapsDelay(t *testing.T) {
	policy := gojob.RetryPolicy{MaxAttempts: 5, MaxDelay: 30 * time.Second}

	out := policy.NormalizeAttempt(core.JobNackOptions{
		Delay:   5 * time.Minute,
		Requeue: true,
		Reason:  "  provider timeout  ",
	}, 1)
	if out.Delay != 30*time.Second {
		t.Fatalf("expected capped delay, got %s", out.Delay)
	}
	if out.Reason != "provider timeout" {
		t.Fatalf("expected trimmed reason, got %q", out.Reason)
	}
	if !out.Requeue {
		t.Fatalf("expected requeue below the attempt ceiling")
	}
}

func TestNormalizeAttemptStopsAtMaxAttempts(t *testing.T) {
	policy := gojob.RetryPolicy{MaxAttempts: 3, DeadLetterOnMax: true}

	out := policy.NormalizeAttempt(core.JobNackOptions{Requeue: true}, 3)
	if out.Requeue {
		t.Fatalf("expected no requeue at the attempt ceiling")
	}
	if !out.DeadLetter {
		t.Fatalf("expected dead letter at the attempt ceiling")
	}
}

func TestNormalizeAttemptDeadLetterDisablesRequeue(t *testing.T) {
	policy := gojob.RetryPolicy{}
	out := policy.NormalizeAttempt(core.JobNackOptions{Requeue: true, DeadLetter: true}, 1)
	if out.Requeue {
		t.Fatalf("dead lettered delivery must not requeue")
	}
}

func TestNormalizeAttemptDefaultsToRequeue(t *testing.T) {
	policy := gojob.RetryPolicy{}
	out := policy.NormalizeAttempt(core.JobNackOptions{Delay: -time.Second}, 1)
	if !out.Requeue {
		t.Fatalf("expected unresolved nack to requeue")
	}
	if out.Delay != 0 {
		t.Fatalf("expected negative delay to clamp to zero, got %s", out.Delay)
	}
}

func TestDeadLetterReplayMessageCarriesIdempotencyKey(t *testing.T) {
	msg := gojob.NewDeadLetterReplayMessage(" dl_1 ")
	if msg.JobID != gojob.JobIDDeadLetterReplay {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.Parameters["dead_letter_id"] != "dl_1" {
		t.Fatalf("expected trimmed dead letter id, got %v", msg.Parameters["dead_letter_id"])
	}
	want := gojob.JobIDDeadLetterReplay + "::dl_1"
	if msg.IdempotencyKey != want {
		t.Fatalf("expected idempotency key %q, got %q", want, msg.IdempotencyKey)
	}
}

func TestRunRetriggerMessage(t *testing.T) {
	msg := gojob.NewRunRetriggerMessage("run_1")
	if msg.JobID != gojob.JobIDRunRetrigger {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.Parameters["run_id"] != "run_1" {
		t.Fatalf("expected run id parameter, got %v", msg.Parameters)
	}
}

func TestExecutionMessageMappingRoundtrip(t *testing.T) {
	original := &core.JobExecutionMessage{
		JobID:          gojob.JobIDEmailRetry,
		Parameters:     map[string]any{"log_id": "log_1"},
		IdempotencyKey: "email::log_1",
		DedupPolicy:    "drop",
	}

	mapped := gojob.ToExecutionMessage(original)
	back := gojob.FromExecutionMessage(mapped)

	if back.JobID != original.JobID {
		t.Fatalf("job id changed: %q", back.JobID)
	}
	if back.IdempotencyKey != original.IdempotencyKey {
		t.Fatalf("idempotency key changed: %q", back.IdempotencyKey)
	}
	if back.DedupPolicy != original.DedupPolicy {
		t.Fatalf("dedup policy changed: %q", back.DedupPolicy)
	}
	if back.Parameters["log_id"] != "log_1" {
		t.Fatalf("parameters changed: %v", back.Parameters)
	}

	mapped.Parameters["log_id"] = "mutated"
	if original.Parameters["log_id"] != "log_1" {
		t.Fatalf("mapping must copy parameters, not share them")
	}
}

func TestExecutionMessageMappingNil(t *testing.T) {
	if gojob.ToExecutionMessage(nil) != nil {
		t.Fatalf("expected nil mapping for nil message")
	}
	if gojob.FromExecutionMessage(nil) != nil {
		t.Fatalf("expected nil mapping for nil message")
	}
}

func TestNackOptionsRoundtrip(t *testing.T) {
	original := core.JobNackOptions{
		Delay:      10 * time.Second,
		Requeue:    true,
		DeadLetter: false,
		Reason:     "transient failure",
	}
	back := gojob.FromNackOptions(gojob.ToNackOptions(original))
	if back != original {
		t.Fatalf("nack options changed: %+v", back)
	}
}
