// Package monitor exposes a running Worker over plain HTTP/JSON, so an
// embedder (a desktop shell, a CI harness, a curl script) can poll
// progress and answer a blocking error without linking against the
// worker package directly. Grounded on the teacher's internal/server
// (net/http.ServeMux plus one handler per route, encoding/json
// responses) with its go:embed static UI dropped — spec.md's external
// interfaces section describes a status/control surface, not a
// bundled frontend.
package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/retronian/fil/internal/worker"
)

// Server serves one Worker's progress and blocking-error surface over
// HTTP. It does not own the worker's Run goroutine; the caller starts
// that separately and constructs a Server alongside it.
type Server struct {
	w    *worker.Worker
	port int

	mu      sync.Mutex
	pending *worker.BlockingErrorRequest
}

// New constructs a Server bound to w, listening on port when Start is
// called.
func New(w *worker.Worker, port int) *Server {
	return &Server{w: w, port: port}
}

// Start runs the HTTP server and a background goroutine that shuttles
// Worker.Requests() into s.pending for /api/request to observe. It
// blocks until the listener fails (including on normal shutdown via
// the caller canceling its context and the process exiting).
func (s *Server) Start() error {
	go s.watchRequests()

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("fil monitor listening at http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the server's route table without binding a listener,
// so tests can drive it through httptest.NewServer/NewRequest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/request", s.handleRequest)
	mux.HandleFunc("/api/respond", s.handleRespond)
	mux.HandleFunc("/api/cancel", s.handleCancel)
	return mux
}

func (s *Server) watchRequests() {
	for req := range s.w.Requests() {
		s.mu.Lock()
		s.pending = &req
		s.mu.Unlock()
	}
}

type statusJSON struct {
	Value       int64  `json:"value"`
	Maximum     int64  `json:"maximum"`
	Done        bool   `json:"done"`
	HasRequest  bool   `json:"has_request"`
	RequestText string `json:"request_text,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := s.w.Progress()

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	resp := statusJSON{Value: p.Value(), Maximum: p.Maximum(), Done: p.Done()}
	if pending != nil {
		resp.HasRequest = true
		resp.RequestText = pending.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type requestJSON struct {
	Pending bool     `json:"pending"`
	Message string   `json:"message,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

// handleRequest reports the currently pending blocking error, if any,
// so an embedder can render it without racing the respond endpoint.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	resp := requestJSON{}
	if pending != nil {
		resp.Pending = true
		resp.Message = pending.Err.Error()
		for _, b := range pending.Allowed {
			resp.Allowed = append(resp.Allowed, b.String())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRespond answers the currently pending blocking error with the
// button named in the "choice" form value (abort, retry, ignore).
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	choice, ok := parseChoice(r.FormValue("choice"))
	if !ok {
		http.Error(w, "unrecognized choice", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending == nil {
		http.Error(w, "no request pending", http.StatusConflict)
		return
	}
	pending.Respond(choice)
	w.WriteHeader(http.StatusNoContent)
}

func parseChoice(s string) (worker.ButtonChoice, bool) {
	switch s {
	case "abort":
		return worker.Abort, true
	case "retry":
		return worker.Retry, true
	case "ignore":
		return worker.Ignore, true
	default:
		return 0, false
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.w.Cancel()
	w.WriteHeader(http.StatusNoContent)
}
