package audits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMobileResponsiveViewport(t *testing.T) {
	html := `<html><head><meta name="viewport" content="width=device-width, initial-scale=1"></head><body></body></html>`
	page := &auditPage{evalJSON: "0"}
	ctx := newAuditContext(page, "https://m.test/", html)

	require.NoError(t, NewMobile(nil).Run(context.Background(), ctx))
	res := ctx.Mobile
	require.NotNil(t, res)
	assert.True(t, res.HasViewport)
	assert.False(t, res.FixedWidthViewport)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Issues)
}

func TestMobileMissingViewport(t *testing.T) {
	page := &auditPage{evalJSON: "0"}
	ctx := newAuditContext(page, "https://m.test/", "<html><head></head><body></body></html>")

	require.NoError(t, NewMobile(nil).Run(context.Background(), ctx))
	res := ctx.Mobile
	require.NotNil(t, res)
	assert.False(t, res.HasViewport)
	assert.Contains(t, res.Issues, "missing_viewport")
	assert.Equal(t, 60, res.Score)
}

func TestMobileFixedWidthViewport(t *testing.T) {
	html := `<html><head><meta name="viewport" content="width=1024"></head><body></body></html>`
	page := &auditPage{evalJSON: "0"}
	ctx := newAuditContext(page, "https://m.test/", html)

	require.NoError(t, NewMobile(nil).Run(context.Background(), ctx))
	res := ctx.Mobile
	require.NotNil(t, res)
	assert.True(t, res.FixedWidthViewport)
	assert.Contains(t, res.Issues, "fixed_width_viewport")
}

func TestMobileSmallFonts(t *testing.T) {
	html := `<html><head><meta name="viewport" content="width=device-width"></head><body></body></html>`
	page := &auditPage{evalJSON: "4"}
	ctx := newAuditContext(page, "https://m.test/", html)

	require.NoError(t, NewMobile(nil).Run(context.Background(), ctx))
	res := ctx.Mobile
	require.NotNil(t, res)
	assert.Equal(t, 4, res.SmallFontNodes)
	assert.Contains(t, res.Issues, "small_font_text")
	assert.Equal(t, 80, res.Score)
}

func TestMobileEvalFailureDegrades(t *testing.T) {
	html := `<html><head><meta name="viewport" content="width=device-width"></head><body></body></html>`
	page := &auditPage{} // Eval errors
	ctx := newAuditContext(page, "https://m.test/", html)

	require.NoError(t, NewMobile(nil).Run(context.Background(), ctx))
	require.NotNil(t, ctx.Mobile)
	assert.Equal(t, 0, ctx.Mobile.SmallFontNodes)
	assert.Equal(t, 100, ctx.Mobile.Score)
}
