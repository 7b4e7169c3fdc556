package onboarding_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	onboarding "github.com/goliatone/go-onboarding"
	"github.com/goliatone/go-onboarding/core"
)

type memoryStores struct {
	ledger      core.IdempotencyLedger
	deadLetters *memoryDeadLetters
	runs        *memoryRuns
	logs        *memoryLogs
	prefs       *memoryPrefs
	clients     *memoryClients
	subs        *memorySubs
}

func newMemoryStores() *memoryStores {
	return &memoryStores{
		ledger:      core.NewMemoryIdempotencyLedger(),
		deadLetters: &memoryDeadLetters{},
		runs:        &memoryRuns{entries: map[string]core.OnboardingRun{}},
		logs:        &memoryLogs{entries: map[string]core.EmailDeliveryLog{}},
		prefs:       &memoryPrefs{entries: map[string]core.EmailPreference{}},
		clients:     &memoryClients{entries: map[string]core.Client{}},
		subs:        &memorySubs{entries: map[string]core.BillingSubscription{}},
	}
}

func (s *memoryStores) IdempotencyLedger() core.IdempotencyLedger         { return s.ledger }
func (s *memoryStores) DeadLetterStore() core.DeadLetterStore             { return s.deadLetters }
func (s *memoryStores) OnboardingRunStore() core.OnboardingRunStore       { return s.runs }
func (s *memoryStores) EmailDeliveryLogStore() core.EmailDeliveryLogStore { return s.logs }
func (s *memoryStores) EmailPreferenceStore() core.EmailPreferenceStore   { return s.prefs }
func (s *memoryStores) ClientStore() core.ClientStore                     { return s.clients }
func (s *memoryStores) SubscriptionStore() core.SubscriptionStore         { return s.subs }

type memoryDeadLetters struct {
	mu      sync.Mutex
	records []core.DeadLetterRecord
}

func (s *memoryDeadLetters) Record(_ context.Context, record core.DeadLetterRecord) (core.DeadLetterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return record, nil
}

func (s *memoryDeadLetters) Get(_ context.Context, id string) (core.DeadLetterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return core.DeadLetterRecord{}, fmt.Errorf("dead letter %q not found", id)
}

func (s *memoryDeadLetters) List(_ context.Context, _ int, _ int) ([]core.DeadLetterRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.DeadLetterRecord(nil), s.records...)
	return out, len(out), nil
}

type memoryRuns struct {
	mu      sync.Mutex
	entries map[string]core.OnboardingRun
}

func (s *memoryRuns) Create(_ context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[run.ID] = run
	return run, nil
}

func (s *memoryRuns) Update(_ context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[run.ID] = run
	return run, nil
}

func (s *memoryRuns) Get(_ context.Context, id string) (core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.entries[id]
	if !ok {
		return core.OnboardingRun{}, fmt.Errorf("run %q not found", id)
	}
	return run, nil
}

func (s *memoryRuns) GetByClient(_ context.Context, clientID string) ([]core.OnboardingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.OnboardingRun
	for _, run := range s.entries {
		if run.ClientID == clientID {
			out = append(out, run)
		}
	}
	return out, nil
}

func (s *memoryRuns) all() []core.OnboardingRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.OnboardingRun
	for _, run := range s.entries {
		out = append(out, run)
	}
	return out
}

type memoryLogs struct {
	mu      sync.Mutex
	entries map[string]core.EmailDeliveryLog
}

func (s *memoryLogs) Create(_ context.Context, entry core.EmailDeliveryLog) (core.EmailDeliveryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *memoryLogs) Update(_ context.Context, entry core.EmailDeliveryLog) (core.EmailDeliveryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *memoryLogs) Get(_ context.Context, id string) (core.EmailDeliveryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return core.EmailDeliveryLog{}, fmt.Errorf("log %q not found", id)
	}
	return entry, nil
}

type memoryPrefs struct {
	mu      sync.Mutex
	entries map[string]core.EmailPreference
}

func (s *memoryPrefs) Get(_ context.Context, userID string) (core.EmailPreference, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pref, ok := s.entries[userID]
	return pref, ok, nil
}

func (s *memoryPrefs) Upsert(_ context.Context, pref core.EmailPreference) (core.EmailPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pref.UserID] = pref
	return pref, nil
}

type memoryClients struct {
	mu      sync.Mutex
	entries map[string]core.Client
}

func (s *memoryClients) Create(_ context.Context, client core.Client) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[client.ID] = client
	return client, nil
}

func (s *memoryClients) Update(_ context.Context, client core.Client) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[client.ID] = client
	return client, nil
}

func (s *memoryClients) Get(_ context.Context, id string) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.entries[id]
	if !ok {
		return core.Client{}, fmt.Errorf("client %q not found", id)
	}
	return client, nil
}

func (s *memoryClients) GetByEmail(_ context.Context, email string) (core.Client, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, client := range s.entries {
		if client.ContactEmail == email {
			return client, true, nil
		}
	}
	return core.Client{}, false, nil
}

type memorySubs struct {
	mu      sync.Mutex
	entries map[string]core.BillingSubscription
}

func (s *memorySubs) Create(_ context.Context, sub core.BillingSubscription) (core.BillingSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sub.ID] = sub
	return sub, nil
}

func (s *memorySubs) Update(_ context.Context, sub core.BillingSubscription) (core.BillingSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sub.ID] = sub
	return sub, nil
}

func (s *memorySubs) Get(_ context.Context, id string) (core.BillingSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.entries[id]
	if !ok {
		return core.BillingSubscription{}, fmt.Errorf("subscription %q not found", id)
	}
	return sub, nil
}

func (s *memorySubs) GetByClient(_ context.Context, clientID string) ([]core.BillingSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BillingSubscription
	for _, sub := range s.entries {
		if sub.ClientID == clientID {
			out = append(out, sub)
		}
	}
	return out, nil
}

type recordingApplier struct {
	mu      sync.Mutex
	created []core.SubscriptionCreatedInput
}

func (a *recordingApplier) ApplySubscriptionCreated(_ context.Context, in core.SubscriptionCreatedInput) (core.Client, core.BillingSubscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, in)
	client := in.Client
	if client.ID == "" {
		client.ID = "cli_1"
	}
	client.Status = core.ClientStatusActive
	subscription := in.Subscription
	subscription.ClientID = client.ID
	return client, subscription, nil
}

func (a *recordingApplier) ApplySubscriptionUpdated(_ context.Context, sub core.BillingSubscription) (core.BillingSubscription, error) {
	return sub, nil
}

func (a *recordingApplier) ApplySubscriptionDeleted(context.Context, string) error { return nil }

func (a *recordingApplier) ApplyPaymentSucceeded(context.Context, core.PaymentInput) error {
	return nil
}

func (a *recordingApplier) ApplyPaymentFailed(context.Context, core.PaymentInput) error { return nil }

type captureMailer struct {
	mu   sync.Mutex
	sent []core.Email
}

func (m *captureMailer) Send(_ context.Context, email core.Email, _ string) (core.MailerReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return core.MailerReceipt{ProviderMessageID: fmt.Sprintf("msg_%d", len(m.sent))}, nil
}

const pipelineSecret = "whsec_pipeline"

func signHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestPipeline(t *testing.T) (*onboarding.Pipeline, *memoryStores, *recordingApplier, *captureMailer) {
	t.Helper()
	cfg := onboarding.DefaultConfig()
	cfg.Webhook.Secret = pipelineSecret

	stores := newMemoryStores()
	service, err := onboarding.NewService(cfg, onboarding.WithStores(stores))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	applier := &recordingApplier{}
	mailer := &captureMailer{}
	pipeline, err := onboarding.NewPipeline(service, onboarding.PipelineDeps{
		Applier: applier,
		Mailer:  mailer,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline, stores, applier, mailer
}

func subscriptionCreatedBody(eventID string) []byte {
	return eventBody(eventID, "subscription.created")
}

func eventBody(eventID string, eventType string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":         eventID,
		"type":       eventType,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"id":        "sub_1",
			"plan_code": "starter",
			"status":    "active",
			"client": map[string]any{
				"company_name":  "Acme Co",
				"contact_name":  "Pat",
				"contact_email": "pat@acme.test",
			},
		},
	})
	return body
}

func deliver(t *testing.T, pipeline *onboarding.Pipeline, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signHex(pipelineSecret, body))
	res := httptest.NewRecorder()
	pipeline.HTTPHandler.ServeHTTP(res, req)
	return res
}

func TestPipelineProcessesSubscriptionCreated(t *testing.T) {
	pipeline, stores, applier, mailer := newTestPipeline(t)

	res := deliver(t, pipeline, subscriptionCreatedBody("evt_1"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var decoded struct {
		Processed bool   `json:"processed"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !decoded.Processed {
		t.Fatalf("expected processed delivery, got %q", decoded.Message)
	}

	if len(applier.created) != 1 {
		t.Fatalf("expected one subscription write, got %d", len(applier.created))
	}
	if applier.created[0].Client.ContactEmail != "pat@acme.test" {
		t.Fatalf("unexpected client on the write set: %+v", applier.created[0].Client)
	}

	runs := stores.runs.all()
	if len(runs) != 1 {
		t.Fatalf("expected one provisioning run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != core.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	if run.TriggeringEventID != "evt_1" {
		t.Fatalf("expected the run to carry the event id, got %q", run.TriggeringEventID)
	}
	if !run.OverallSuccess {
		t.Fatalf("expected an all-success run: %+v", run.Steps)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one welcome email, got %d", len(mailer.sent))
	}
	if mailer.sent[0].To != "pat@acme.test" {
		t.Fatalf("expected welcome email to the contact, got %q", mailer.sent[0].To)
	}
}

func TestPipelineHandlesProviderNamespacedTypes(t *testing.T) {
	pipeline, stores, applier, mailer := newTestPipeline(t)

	res := deliver(t, pipeline, eventBody("evt_123", "customer.subscription.created"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var decoded struct {
		Processed bool   `json:"processed"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !decoded.Processed || decoded.Message != "Event processed" {
		t.Fatalf("expected the namespaced type to be processed, got %+v", decoded)
	}
	if len(applier.created) != 1 {
		t.Fatalf("expected the subscription write set to run, got %d", len(applier.created))
	}
	runs := stores.runs.all()
	if len(runs) != 1 || runs[0].TriggeringEventID != "evt_123" {
		t.Fatalf("expected an onboarding run for evt_123, got %+v", runs)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected the welcome email, got %d sends", len(mailer.sent))
	}
}

func TestPipelineDeduplicatesDeliveries(t *testing.T) {
	pipeline, _, applier, _ := newTestPipeline(t)

	body := subscriptionCreatedBody("evt_dup")
	if res := deliver(t, pipeline, body); res.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", res.Code)
	}
	res := deliver(t, pipeline, body)
	if res.Code != http.StatusOK {
		t.Fatalf("second delivery: expected 200, got %d", res.Code)
	}
	var decoded struct {
		Processed bool   `json:"processed"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Processed {
		t.Fatalf("duplicate delivery must not reprocess")
	}
	if decoded.Message != "Duplicate event" {
		t.Fatalf("unexpected duplicate message %q", decoded.Message)
	}
	if len(applier.created) != 1 {
		t.Fatalf("expected the write set to run once, got %d", len(applier.created))
	}
}

func TestPipelineRejectsBadSignature(t *testing.T) {
	pipeline, _, applier, _ := newTestPipeline(t)

	body := subscriptionCreatedBody("evt_bad_sig")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signHex("whsec_other", body))
	res := httptest.NewRecorder()
	pipeline.HTTPHandler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if len(applier.created) != 0 {
		t.Fatalf("rejected delivery must not reach a handler")
	}
}

func TestNewPipelineValidatesDependencies(t *testing.T) {
	if _, err := onboarding.NewPipeline(nil, onboarding.PipelineDeps{}); err == nil {
		t.Fatalf("expected missing service to fail")
	}

	service, err := onboarding.NewService(onboarding.DefaultConfig(), onboarding.WithStores(newMemoryStores()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := onboarding.NewPipeline(service, onboarding.PipelineDeps{Mailer: &captureMailer{}}); err == nil {
		t.Fatalf("expected missing applier to fail")
	}
	if _, err := onboarding.NewPipeline(service, onboarding.PipelineDeps{Applier: &recordingApplier{}}); err == nil {
		t.Fatalf("expected missing mailer to fail")
	}

	bare, err := onboarding.NewService(onboarding.DefaultConfig())
	if err != nil {
		t.Fatalf("new bare service: %v", err)
	}
	if _, err := onboarding.NewPipeline(bare, onboarding.PipelineDeps{
		Applier: &recordingApplier{},
		Mailer:  &captureMailer{},
	}); err == nil {
		t.Fatalf("expected a service without stores to fail")
	}
}
