package audit

import (
	"context"
	"fmt"
)

// Audit is a named unit of per-page analysis. Each implementation writes
// exclusively to its own result field on the Context and must not read
// another audit's fields, which keeps the pipeline order-insensitive and
// failures isolated.
type Audit interface {
	Name() string
	Run(ctx context.Context, page *Context) error
}

// Safe wraps an Audit so that a failure (error or panic) is recorded on the
// context instead of aborting the sibling audits or the page attempt.
type Safe struct {
	inner Audit
}

// NewSafe wraps audit.
func NewSafe(inner Audit) Safe {
	return Safe{inner: inner}
}

// Name returns the wrapped audit's name.
func (s Safe) Name() string {
	return s.inner.Name()
}

// Run executes the wrapped audit, converting panics and errors into a
// recorded per-audit failure. It always returns nil.
func (s Safe) Run(ctx context.Context, page *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			page.RecordAuditError(s.inner.Name(), fmt.Sprintf("panic: %v", r))
		}
	}()
	if runErr := s.inner.Run(ctx, page); runErr != nil {
		page.RecordAuditError(s.inner.Name(), runErr.Error())
	}
	return nil
}
