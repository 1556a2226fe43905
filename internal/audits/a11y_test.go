package audits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

func violationByRule(res *audit.A11yResult, rule string) *audit.Violation {
	for i := range res.Violations {
		if res.Violations[i].Rule == rule {
			return &res.Violations[i]
		}
	}
	return nil
}

func TestA11yCleanPage(t *testing.T) {
	html := `<html lang="en"><head></head><body>
<img src="a.png" alt="a">
<a href="/x">link text</a>
<label for="q">Query</label><input id="q" type="text">
<button>Go</button>
</body></html>`
	ctx := newAuditContext(&auditPage{}, "https://a.test/clean", html)
	require.NoError(t, NewA11y().Run(context.Background(), ctx))
	require.NotNil(t, ctx.Accessibility)
	assert.Empty(t, ctx.Accessibility.Violations)
}

func TestA11yFindsViolations(t *testing.T) {
	html := `<html><head></head><body>
<img src="a.png"><img src="b.png">
<a href="/x"></a>
<input type="text">
<button></button>
<iframe src="/frame"></iframe>
</body></html>`
	ctx := newAuditContext(&auditPage{}, "https://a.test/dirty", html)
	require.NoError(t, NewA11y().Run(context.Background(), ctx))

	res := ctx.Accessibility
	require.NotNil(t, res)

	imgAlt := violationByRule(res, "image-alt")
	require.NotNil(t, imgAlt)
	assert.Equal(t, 2, imgAlt.Nodes)
	assert.Equal(t, "critical", imgAlt.Impact)

	assert.NotNil(t, violationByRule(res, "html-has-lang"))
	assert.NotNil(t, violationByRule(res, "link-name"))
	assert.NotNil(t, violationByRule(res, "label"))
	assert.NotNil(t, violationByRule(res, "button-name"))
	assert.NotNil(t, violationByRule(res, "frame-title"))
}

func TestA11yAriaLabelsSatisfyNames(t *testing.T) {
	html := `<html lang="en"><body>
<a href="/x" aria-label="home"></a>
<input type="text" aria-label="search">
<button aria-label="submit"></button>
</body></html>`
	ctx := newAuditContext(&auditPage{}, "https://a.test/aria", html)
	require.NoError(t, NewA11y().Run(context.Background(), ctx))
	assert.Empty(t, ctx.Accessibility.Violations)
}

func TestA11yWrappedInputHasLabel(t *testing.T) {
	html := `<html lang="en"><body>
<label>Name <input type="text"></label>
</body></html>`
	ctx := newAuditContext(&auditPage{}, "https://a.test/wrap", html)
	require.NoError(t, NewA11y().Run(context.Background(), ctx))
	assert.Nil(t, violationByRule(ctx.Accessibility, "label"))
}
