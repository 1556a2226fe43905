package audits

import (
	"context"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// Console attaches the console error and uncaught exception messages the
// page collected during the attempt.
type Console struct{}

// NewConsole builds the console audit.
func NewConsole() *Console { return &Console{} }

// Name implements audit.Audit.
func (a *Console) Name() string { return "console" }

// Run copies the page's collected console errors onto the result.
func (a *Console) Run(_ context.Context, page *audit.Context) error {
	page.ConsoleErrors = append([]string(nil), page.Page.ConsoleErrors()...)
	return nil
}
