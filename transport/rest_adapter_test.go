package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/transport"
)

func TestRESTAdapterDo(t *testing.T) {
	var gotMethod, gotAuth, gotQuery string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("page")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Request-Id", "req_1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"res_1"}`))
	}))
	defer server.Close()

	adapter := transport.NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["Authorization"] = "Bearer token_1"

	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "post",
		URL:    server.URL + "/v1/things",
		Query:  map[string]string{"page": "2"},
		Body:   []byte(`{"name":"acme"}`),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotAuth != "Bearer token_1" {
		t.Fatalf("expected default header to be applied, got %q", gotAuth)
	}
	if gotQuery != "2" {
		t.Fatalf("expected query parameter, got %q", gotQuery)
	}
	if string(gotBody) != `{"name":"acme"}` {
		t.Fatalf("unexpected request body %q", gotBody)
	}
	if string(res.Body) != `{"id":"res_1"}` {
		t.Fatalf("unexpected response body %q", res.Body)
	}
	if res.Headers["X-Request-Id"] != "req_1" {
		t.Fatalf("expected flattened response headers, got %v", res.Headers)
	}
	if res.Metadata["kind"] != transport.KindREST {
		t.Fatalf("expected rest metadata, got %v", res.Metadata)
	}
}

func TestRESTAdapterRequestHeadersOverrideDefaults(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := transport.NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["Authorization"] = "Bearer default"

	if _, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer override"},
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotAuth != "Bearer override" {
		t.Fatalf("expected request header to win, got %q", gotAuth)
	}
}

func TestRESTAdapterEnforcesBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	adapter := transport.NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:                  server.URL,
		MaxResponseBodyBytes: 16,
	})
	if err == nil {
		t.Fatalf("expected oversized response to be rejected")
	}
}

func TestRESTAdapterRequiresURL(t *testing.T) {
	adapter := transport.NewRESTAdapter(nil)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{}); err == nil {
		t.Fatalf("expected missing url to fail")
	}
}
