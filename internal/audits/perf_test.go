package audits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfScoresAgainstBudget(t *testing.T) {
	page := &auditPage{evalJSON: `{"ttfb":100,"fcp":1000,"lcp":3000,"dcl":2000}`}
	ctx := newAuditContext(page, "https://p.test/", "<html></html>")

	a, err := NewPerf("default")
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), ctx))

	res := ctx.Perf
	require.NotNil(t, res)
	assert.Equal(t, 75, res.Score, "one metric over budget costs 25 points")
	assert.Equal(t, []string{"lcp_over_budget"}, res.OverBudget)
	assert.Equal(t, "default", res.Budget)
	require.NotNil(t, res.TTFBMs)
	assert.Equal(t, float64(100), *res.TTFBMs)
}

func TestPerfMissingMetricsAreNotPenalized(t *testing.T) {
	page := &auditPage{evalJSON: `{"ttfb":100}`}
	ctx := newAuditContext(page, "https://p.test/", "<html></html>")

	a, err := NewPerf("strict")
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background(), ctx))

	res := ctx.Perf
	require.NotNil(t, res)
	assert.Equal(t, 100, res.Score)
	assert.Nil(t, res.FCPMs)
	assert.Nil(t, res.LCPMs)
}

func TestPerfBudgetTables(t *testing.T) {
	// 1400ms FCP passes default but busts strict.
	payload := `{"fcp":1400}`
	for budget, wantScore := range map[string]int{"default": 100, "strict": 75} {
		page := &auditPage{evalJSON: payload}
		ctx := newAuditContext(page, "https://p.test/", "<html></html>")
		a, err := NewPerf(budget)
		require.NoError(t, err)
		require.NoError(t, a.Run(context.Background(), ctx))
		assert.Equal(t, wantScore, ctx.Perf.Score, budget)
	}
}

func TestPerfUnknownBudget(t *testing.T) {
	_, err := NewPerf("turbo")
	assert.Error(t, err)
}

func TestPerfEvalFailurePropagates(t *testing.T) {
	page := &auditPage{} // Eval errors
	ctx := newAuditContext(page, "https://p.test/", "<html></html>")
	a, err := NewPerf("")
	require.NoError(t, err)
	assert.Error(t, a.Run(context.Background(), ctx))
	assert.Nil(t, ctx.Perf)
}
