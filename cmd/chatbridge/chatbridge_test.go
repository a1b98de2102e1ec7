package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/chatbridge/pkg/config"
)

// fakeOllama streams a fixed NDJSON reply from /api/chat and lists one
// model from /api/tags.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			w.Header().Set("Content-Type", "application/x-ndjson")
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Hello"},"done":false}`)
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":", world"},"done":false}`)
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":3}`)
		case "/api/tags":
			fmt.Fprintln(w, `{"models":[{"name":"llama3.2:latest","size":1000}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.Provider.Type = "ollama"
	cfg.Provider.BaseURL = baseURL
	cfg.Provider.DefaultModel = "llama3.2"
	return &cfg
}

func TestRunChat_Streams(t *testing.T) {
	cfg := testConfig(fakeOllama(t).URL)
	prov, err := buildProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := buildEngine(cfg, prov, nil)
	if err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	if err := runChat(context.Background(), eng, chatOptions{}, "hi", &out, &errOut); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if got := out.String(); got != "Hello, world\n" {
		t.Errorf("stdout = %q", got)
	}
	if s := errOut.String(); !strings.Contains(s, "[stop, 7 in / 3 out tokens]") {
		t.Errorf("summary = %q", s)
	}
}

func TestRunChat_NoStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":"whole reply"},"done":true,"done_reason":"stop"}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	prov, _ := buildProvider(cfg)
	eng, _ := buildEngine(cfg, prov, nil)

	var out, errOut bytes.Buffer
	if err := runChat(context.Background(), eng, chatOptions{noStream: true}, "hi", &out, &errOut); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	if out.String() != "whole reply\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRunChat_ValidationError(t *testing.T) {
	cfg := testConfig(fakeOllama(t).URL)
	cfg.Provider.DefaultModel = ""
	prov, _ := buildProvider(cfg)
	eng, _ := buildEngine(cfg, prov, nil)

	var out, errOut bytes.Buffer
	if err := runChat(context.Background(), eng, chatOptions{}, "hi", &out, &errOut); err == nil {
		t.Fatal("expected an error without a model")
	}
}

func TestBuildProvider(t *testing.T) {
	for _, typ := range []string{"responses", "openaicompat", "ollama"} {
		cfg := testConfig("http://localhost:1")
		cfg.Provider.Type = typ
		p, err := buildProvider(cfg)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if p.Name() == "" {
			t.Errorf("%s: empty provider name", typ)
		}
		p.Close()
	}

	cfg := testConfig("http://localhost:1")
	cfg.Provider.Type = "unknown"
	if _, err := buildProvider(cfg); err == nil {
		t.Error("expected error for unknown provider type")
	}
}

func TestBuildStore_Memory(t *testing.T) {
	cfg := testConfig("")
	store, err := buildStore(context.Background(), cfg)
	if err != nil || store == nil {
		t.Fatalf("store = %v, err = %v", store, err)
	}
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestBuildAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	status := func(mw func(http.Handler) http.Handler, path, authz string) int {
		r := httptest.NewRequest("GET", path, nil)
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, r)
		return rec.Code
	}

	cfg := testConfig("")
	if mw, err := buildAuth(cfg); err != nil || mw != nil {
		t.Fatalf("auth none: mw=%v err=%v", mw != nil, err)
	}

	cfg.Auth.Type = "apikey"
	cfg.Auth.APIKeys = []config.APIKeyConfig{{Key: "sk-1", Subject: "alice", TenantID: "t1"}}
	mw, err := buildAuth(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := status(mw, "/v1/chat", "Bearer sk-1"); got != http.StatusOK {
		t.Errorf("valid key: %d", got)
	}
	if got := status(mw, "/v1/chat", "Bearer nope"); got != http.StatusUnauthorized {
		t.Errorf("bad key: %d", got)
	}
	if got := status(mw, "/healthz", ""); got != http.StatusOK {
		t.Errorf("healthz: %d", got)
	}

	cfg.Auth.Type = "jwt"
	if _, err := buildAuth(cfg); err == nil {
		t.Error("jwt without key source should fail")
	}

	cfg.Auth.Type = "none"
	cfg.Auth.RateLimit.RequestsPerMinute = 1
	mw, _ = buildAuth(cfg)
	if got := status(mw, "/v1/chat", ""); got != http.StatusOK {
		t.Errorf("first anonymous request: %d", got)
	}
	if got := status(mw, "/v1/chat", ""); got != http.StatusTooManyRequests {
		t.Errorf("second anonymous request: %d", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := metricsEndpoint("/metrics")(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "chatbridge_") {
		t.Errorf("metrics: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("passthrough: %d", rec.Code)
	}
}
