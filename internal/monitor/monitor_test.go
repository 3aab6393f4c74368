package monitor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/retronian/fil/internal/monitor"
	"github.com/retronian/fil/internal/worker"
)

func TestStatusReflectsTasklessRun(t *testing.T) {
	w := worker.New(worker.Params{})
	s := monitor.New(w, 0)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	result, err := w.Run(context.Background())
	if err != nil || result != worker.Taskless {
		t.Fatalf("run: %v %v", result, err)
	}

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()

	var status struct {
		Done       bool `json:"done"`
		HasRequest bool `json:"has_request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Done {
		t.Fatal("expected a taskless run to already report done")
	}
	if status.HasRequest {
		t.Fatal("expected no pending request after a clean run")
	}
}

func TestRequestAndRespondWithNothingPending(t *testing.T) {
	w := worker.New(worker.Params{})
	s := monitor.New(w, 0)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/request")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	defer resp.Body.Close()
	var body struct{ Pending bool }
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Pending {
		t.Fatal("expected no pending request before any run starts")
	}

	respondResp, err := http.PostForm(srv.URL+"/api/respond", url.Values{"choice": {"ignore"}})
	if err != nil {
		t.Fatalf("post respond: %v", err)
	}
	defer respondResp.Body.Close()
	if respondResp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 with nothing pending, got %d", respondResp.StatusCode)
	}
}

func TestCancelBeforeTasklessRun(t *testing.T) {
	w := worker.New(worker.Params{})
	s := monitor.New(w, 0)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/cancel", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("post cancel: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Cancel before Run only affects the checks Run makes past its
	// Taskless short-circuit; with nothing selected the run still
	// reports Taskless since it never reaches a cancellation check.
	if result != worker.Taskless {
		t.Fatalf("expected Taskless, got %v", result)
	}
}
