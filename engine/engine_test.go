package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hazyhaar/axwatch/hostio"
)

func TestRemoteAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "teh quick fox" {
			t.Errorf("text = %q, want %q", req.Text, "teh quick fox")
		}
		json.NewEncoder(w).Encode(analyzeResponse{Findings: []hostio.Finding{
			{Start: 0, End: 3, Message: "possible typo", Severity: hostio.SeverityWarning, Category: "spelling", LintID: "typo.teh", Suggestions: []string{"the"}},
		}})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL)
	findings, err := r.Analyze(context.Background(), "teh quick fox")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].LintID != "typo.teh" {
		t.Errorf("lint id = %q, want typo.teh", findings[0].LintID)
	}
	if len(findings[0].Suggestions) != 1 || findings[0].Suggestions[0] != "the" {
		t.Errorf("suggestions = %v, want [the]", findings[0].Suggestions)
	}
}

func TestRemoteRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(analyzeResponse{})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, WithRetries(2))
	if _, err := r.Analyze(context.Background(), "hello"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestRemoteExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, WithRetries(0))
	if _, err := r.Analyze(context.Background(), "hello"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
}

func TestFuncAdapter(t *testing.T) {
	f := Func(func(_ context.Context, text string) ([]hostio.Finding, error) {
		return []hostio.Finding{{Message: text}}, nil
	})
	findings, err := f.Analyze(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if findings[0].Message != "hi" {
		t.Errorf("message = %q, want hi", findings[0].Message)
	}
}
