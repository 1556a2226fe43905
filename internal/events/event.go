// Package events defines the lifecycle event stream emitted by the audit
// queue and consumed by logging, metrics, and the WebSocket bridge.
package events

import (
	"errors"
	"fmt"
	"time"
)

// Kind denotes the type of lifecycle milestone represented by an Event.
type Kind string

// Supported event kinds.
const (
	KindPageQueued     Kind = "page_queued"
	KindPageStarted    Kind = "page_started"
	KindPageFinished   Kind = "page_finished"
	KindPageError      Kind = "page_error"
	KindPageSkipped    Kind = "page_skipped"
	KindPageRetry      Kind = "page_retry"
	KindPageRedirected Kind = "page_redirected"
	KindAuditAttached  Kind = "audit_attached"
	KindAuditFinished  Kind = "audit_finished"
)

// Event captures a single milestone in a page's audit lifecycle. Within one
// URL the emitter guarantees strict ordering; across URLs events interleave
// arbitrarily.
type Event struct {
	// RunID identifies the audit run the event belongs to.
	RunID string `json:"runId"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// Kind denotes which lifecycle milestone occurred.
	Kind Kind `json:"kind"`
	// URL is the subject page URL.
	URL string `json:"url"`
	// Audit names the audit for audit_attached/audit_finished.
	Audit string `json:"audit,omitempty"`
	// Attempt is the 1-based retry attempt for page_retry.
	Attempt int `json:"attempt,omitempty"`
	// DelayMs is the backoff delay announced by page_retry.
	DelayMs int64 `json:"delayMs,omitempty"`
	// FinalURL carries the resolved destination for page_redirected.
	FinalURL string `json:"finalUrl,omitempty"`
	// RedirectType tags page_redirected (http/meta/javascript).
	RedirectType string `json:"redirectType,omitempty"`
	// Reason explains page_skipped.
	Reason string `json:"reason,omitempty"`
	// Message carries the failure text for page_error.
	Message string `json:"message,omitempty"`
	// Status is the page's HTTP status where known.
	Status int `json:"status,omitempty"`
	// DurMs is the wall time for page_finished and audit_finished.
	DurMs int64 `json:"durMs,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.URL == "" {
		return errors.New("url is required")
	}
	switch e.Kind {
	case KindPageQueued, KindPageStarted, KindPageFinished, KindPageError,
		KindPageSkipped, KindPageRedirected:
	case KindPageRetry:
		if e.Attempt <= 0 {
			return errors.New("retry requires attempt >= 1")
		}
	case KindAuditAttached, KindAuditFinished:
		if e.Audit == "" {
			return errors.New("audit events require an audit name")
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}
