// Package web exposes the clustering report over HTTP: JSON endpoints for
// the full report and per-rule slices, plus SSE subscriptions so a viewer
// can refresh when watch mode re-runs the analysis.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"taintlens/pkg/logging"
	"taintlens/pkg/pubsub"
	"taintlens/pkg/report"
)

// Topic names published by the analysis runner.
const (
	TopicStatus = "analysis_status"
	TopicReport = "report"
)

// Server serves the clustering report.
type Server struct {
	router    *mux.Router
	publisher pubsub.Publisher

	mu     sync.RWMutex
	report *report.Report
}

// NewServer creates a report server with buffered status and report topics.
func NewServer() *Server {
	publisher := pubsub.NewSSEPublisher()

	// New subscribers only need the current state, not history.
	publisher.ConfigureTopic(TopicStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})
	publisher.ConfigureTopic(TopicReport, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: publisher,
	}
	s.setupRoutes()
	return s
}

// SetReport stores the latest report.
func (s *Server) SetReport(r *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
}

// GetReport returns the latest report, or nil before the first run
// finishes.
func (s *Server) GetReport() *report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// PublishStatus publishes an analysis progress event.
func (s *Server) PublishStatus(state, message string, step, total int) error {
	return s.publisher.Publish(TopicStatus, state, pubsub.AnalysisStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	})
}

// PublishReport announces the latest report to subscribers.
func (s *Server) PublishReport(eventType string, complete bool) error {
	summary := pubsub.ReportSummary{Complete: complete}
	if r := s.GetReport(); r != nil {
		summary.Rules = len(r.Rules)
		summary.Clusters = r.ClusterCount()
		summary.Findings = r.Findings
	}
	return s.publisher.Publish(TopicReport, eventType, summary)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/status", s.subscribeHandler(TopicStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/report", s.subscribeHandler(TopicReport)).Methods("GET")

	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/report/rules/{rule}", s.handleRule).Methods("GET")
	s.router.HandleFunc("/api/report/markdown", s.handleMarkdown).Methods("GET")
}

// subscribeHandler streams a topic's events over SSE.
func (s *Server) subscribeHandler(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// Initial comment establishes the connection (Safari compatibility).
		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.ErrorContext(r.Context(), "writing SSE event", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	rep := s.GetReport()
	if rep == nil {
		http.Error(w, "report not available yet", http.StatusServiceUnavailable)
		return
	}
	json.NewEncoder(w).Encode(rep)
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	rep := s.GetReport()
	if rep == nil {
		http.Error(w, "report not available yet", http.StatusServiceUnavailable)
		return
	}

	rule := mux.Vars(r)["rule"]
	for _, rr := range rep.Rules {
		if rr.RuleID == rule {
			json.NewEncoder(w).Encode(rr)
			return
		}
	}
	http.Error(w, fmt.Sprintf("rule not found: %s", rule), http.StatusNotFound)
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	rep := s.GetReport()
	if rep == nil {
		http.Error(w, "report not available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := report.WriteMarkdown(w, rep); err != nil {
		logging.ErrorContext(r.Context(), "writing markdown report", "error", err)
	}
}

// Start starts the web server on the specified port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting report server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, logging.RequestIDMiddleware(s.router))
}
