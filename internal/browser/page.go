// Package browser owns the headless browser process and the pool of
// browsing contexts the audit queue borrows pages from.
package browser

import (
	"context"
	"net/http"
	"time"
)

// ResponseInfo records one network response observed by a page since its
// last reset. Redirect hops surface here with their 3xx status and
// Location header.
type ResponseInfo struct {
	URL     string
	Status  int
	Headers http.Header
	TS      time.Time
}

// Location returns the response's Location header, if any.
func (r ResponseInfo) Location() string {
	return r.Headers.Get("Location")
}

// Page is the typed capability surface the audits and the redirect probe
// need from a browsing context. It deliberately exposes nothing about the
// underlying automation library.
type Page interface {
	// Navigate loads url and waits for DOM-ready (not full load).
	Navigate(ctx context.Context, url string) error
	// Eval runs a JavaScript expression and unmarshals the result into out.
	Eval(ctx context.Context, expr string, out any) error
	// HTML returns the current serialized DOM.
	HTML(ctx context.Context) (string, error)
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
	// Screenshot captures a full viewport PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Responses returns document responses observed since the last Reset,
	// in arrival order.
	Responses() []ResponseInfo
	// ConsoleErrors returns console error and uncaught exception messages
	// collected since the last Reset.
	ConsoleErrors() []string
	// Reset blanks the page and clears collected records. A failed reset
	// marks the handle as corrupted; callers must discard it.
	Reset(ctx context.Context) error
	// Close destroys the browsing context.
	Close() error
}
