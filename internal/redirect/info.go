// Package redirect detects a page's true final destination before the
// audit queue decides which URL to audit.
package redirect

import "time"

// Type tags how a redirect was detected.
type Type string

// Supported redirect types.
const (
	TypeHTTP       Type = "http_redirect"
	TypeJavaScript Type = "javascript_redirect"
	TypeMeta       Type = "meta_redirect"
)

// Hop records one step of an HTTP redirect chain.
type Hop struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Status int    `json:"status"`
}

// Info describes one detected redirect. Created once per detection and
// never mutated afterwards; the run-scoped Statistics aggregate owns it
// for the rest of the run.
type Info struct {
	OriginalURL string    `json:"originalUrl"`
	FinalURL    string    `json:"finalUrl"`
	// StatusCode is the HTTP status of the first hop, or a synthesized
	// 200 for meta and script redirects.
	StatusCode int       `json:"statusCode"`
	Type       Type      `json:"type"`
	DetectedAt time.Time `json:"detectedAt"`
	Chain      []Hop     `json:"chain,omitempty"`
}
