package audits

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
	"github.com/casoon/auditmysite-studio-sub002/internal/browser"
)

// auditPage fakes the browser page for audit tests. Eval answers every
// expression with the canned JSON payload.
type auditPage struct {
	evalJSON      string
	consoleErrors []string
	screenshot    []byte
}

func (p *auditPage) Navigate(context.Context, string) error { return nil }

func (p *auditPage) Eval(_ context.Context, _ string, out any) error {
	if p.evalJSON == "" {
		return errors.New("eval unavailable")
	}
	return json.Unmarshal([]byte(p.evalJSON), out)
}

func (p *auditPage) HTML(context.Context) (string, error) { return "", nil }

func (p *auditPage) Location(context.Context) (string, error) { return "", nil }

func (p *auditPage) Screenshot(context.Context) ([]byte, error) {
	if p.screenshot == nil {
		return nil, errors.New("screenshot unavailable")
	}
	return p.screenshot, nil
}

func (p *auditPage) Responses() []browser.ResponseInfo { return nil }

func (p *auditPage) ConsoleErrors() []string { return p.consoleErrors }

func (p *auditPage) Reset(context.Context) error { return nil }

func (p *auditPage) Close() error { return nil }

func newAuditContext(page *auditPage, url, html string) *audit.Context {
	ctx := audit.NewContext("run-1", url, page, time.Now().UTC())
	ctx.SetHTML(html)
	return ctx
}
