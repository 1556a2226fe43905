package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the shared headless browser process.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
}

// Browser wraps one headless Chrome process. Pages are tabs created from
// the warmed browser context; closing the Browser tears everything down.
type Browser struct {
	cfg             Config
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
}

// NewBrowser launches headless Chrome and warms the browser context. A
// launch failure here is fatal to the run.
func NewBrowser(cfg Config, logger *zap.Logger) (*Browser, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Browser{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
	}, nil
}

// NewPage opens a fresh tab and wires its event recorder. Satisfies the
// pool's PageFactory signature.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	p := &chromePage{
		browser:  b,
		tabCtx:   tabCtx,
		cancel:   tabCancel,
		recorder: newRecorder(),
	}
	chromedp.ListenTarget(tabCtx, p.recorder.handle)

	runCtx, cancel := b.runContext(ctx, tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, network.Enable()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if b.cfg.UserAgent != "" {
		if err := chromedp.Run(runCtx, emulation.SetUserAgentOverride(b.cfg.UserAgent)); err != nil {
			tabCancel()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	return p, nil
}

// Close tears down the allocator and browser contexts. Idempotent.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocatorCancel()
}

// runContext derives a chromedp-compatible context that also honors the
// caller's cancellation.
func (b *Browser) runContext(caller, tab context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(tab, b.cfg.NavTimeout)
	stop := forwardCancel(caller, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

type chromePage struct {
	browser  *Browser
	tabCtx   context.Context
	cancel   context.CancelFunc
	recorder *recorder
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) Eval(ctx context.Context, expr string, out any) error {
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromePage) Responses() []ResponseInfo {
	return p.recorder.responses()
}

func (p *chromePage) ConsoleErrors() []string {
	return p.recorder.consoleErrors()
}

func (p *chromePage) Reset(ctx context.Context) error {
	runCtx, cancel := p.browser.runContext(ctx, p.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("blank page: %w", err)
	}
	p.recorder.reset()
	return nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// recorder accumulates document responses and console errors per tab.
// Redirect hops arrive as requestWillBeSent events carrying the previous
// hop's redirectResponse; terminal responses arrive as responseReceived.
type recorder struct {
	mu       sync.Mutex
	resps    []ResponseInfo
	consoles []string
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Type != network.ResourceTypeDocument || e.RedirectResponse == nil {
			return
		}
		r.append(ResponseInfo{
			URL:     e.RedirectResponse.URL,
			Status:  int(e.RedirectResponse.Status),
			Headers: toHTTPHeaders(e.RedirectResponse.Headers),
			TS:      time.Now().UTC(),
		})
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		r.append(ResponseInfo{
			URL:     e.Response.URL,
			Status:  int(e.Response.Status),
			Headers: toHTTPHeaders(e.Response.Headers),
			TS:      time.Now().UTC(),
		})
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return
		}
		r.appendConsole(formatConsoleArgs(e.Args))
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails == nil {
			return
		}
		r.appendConsole(e.ExceptionDetails.Error())
	}
}

func (r *recorder) append(info ResponseInfo) {
	r.mu.Lock()
	r.resps = append(r.resps, info)
	r.mu.Unlock()
}

func (r *recorder) appendConsole(msg string) {
	if msg == "" {
		return
	}
	r.mu.Lock()
	r.consoles = append(r.consoles, msg)
	r.mu.Unlock()
}

func (r *recorder) responses() []ResponseInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResponseInfo(nil), r.resps...)
}

func (r *recorder) consoleErrors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.consoles...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.resps = nil
	r.consoles = nil
	r.mu.Unlock()
}

func toHTTPHeaders(h network.Headers) http.Header {
	headers := http.Header{}
	for key, value := range h {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []string:
			for _, entry := range v {
				headers.Add(key, entry)
			}
		case []interface{}:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	return headers
}

func formatConsoleArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		switch {
		case arg.Value != nil:
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				parts = append(parts, s)
			} else {
				parts = append(parts, string(arg.Value))
			}
		case arg.Description != "":
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
