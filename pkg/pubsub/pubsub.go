package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "analysis_status", "report")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "clustering", "complete")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// AnalysisStatus represents the state of an analysis run
type AnalysisStatus struct {
	State   string `json:"state"`   // loading, clustering, rendering, ready, error
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}

// ReportSummary announces a finished (or partial) report to subscribers
type ReportSummary struct {
	Rules    int  `json:"rules"`
	Clusters int  `json:"clusters"`
	Findings int  `json:"findings"`
	Complete bool `json:"complete"` // True when the full report is available
}
