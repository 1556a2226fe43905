package audits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPage = `<html lang="en"><head>
<title>A Perfectly Good Page Title</title>
<meta name="description" content="A concise description of the page.">
<link rel="canonical" href="https://s.test/page">
</head><body><h1>Heading</h1></body></html>`

func TestSEOCleanPage(t *testing.T) {
	ctx := newAuditContext(&auditPage{}, "https://s.test/page", cleanPage)
	require.NoError(t, NewSEO().Run(context.Background(), ctx))

	res := ctx.SEO
	require.NotNil(t, res)
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Issues)
	assert.Equal(t, "A Perfectly Good Page Title", res.Title)
	assert.Equal(t, "https://s.test/page", res.Canonical)
	assert.Equal(t, 1, res.H1Count)
	assert.False(t, res.RobotsNoindex)
}

func TestSEOMissingEverything(t *testing.T) {
	ctx := newAuditContext(&auditPage{}, "https://s.test/bare", `<html><head></head><body></body></html>`)
	require.NoError(t, NewSEO().Run(context.Background(), ctx))

	res := ctx.SEO
	require.NotNil(t, res)
	assert.Contains(t, res.Issues, "missing_title")
	assert.Contains(t, res.Issues, "missing_meta_description")
	assert.Contains(t, res.Issues, "missing_canonical")
	assert.Contains(t, res.Issues, "missing_h1")
	assert.Equal(t, 40, res.Score)
}

func TestSEORobotsNoindex(t *testing.T) {
	html := `<html><head><title>A Perfectly Good Page Title</title>
<meta name="robots" content="noindex, nofollow"></head><body><h1>x</h1></body></html>`
	ctx := newAuditContext(&auditPage{}, "https://s.test/hidden", html)
	require.NoError(t, NewSEO().Run(context.Background(), ctx))

	require.NotNil(t, ctx.SEO)
	assert.True(t, ctx.SEO.RobotsNoindex)
	assert.Contains(t, ctx.SEO.Issues, "robots_noindex")
}

func TestSEOTitleLengths(t *testing.T) {
	tests := []struct {
		name  string
		title string
		issue string
	}{
		{"short", "Hi", "title_too_short"},
		{"long", "This title keeps going and going and going far past the sixty character ceiling", "title_too_long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := "<html><head><title>" + tt.title + "</title></head><body><h1>x</h1></body></html>"
			ctx := newAuditContext(&auditPage{}, "https://s.test/t", html)
			require.NoError(t, NewSEO().Run(context.Background(), ctx))
			assert.Contains(t, ctx.SEO.Issues, tt.issue)
		})
	}
}

func TestSEOMultipleH1(t *testing.T) {
	html := `<html><head><title>A Perfectly Good Page Title</title></head>
<body><h1>one</h1><h1>two</h1></body></html>`
	ctx := newAuditContext(&auditPage{}, "https://s.test/h1", html)
	require.NoError(t, NewSEO().Run(context.Background(), ctx))
	assert.Equal(t, 2, ctx.SEO.H1Count)
	assert.Contains(t, ctx.SEO.Issues, "multiple_h1")
}

func TestSEOFailsWithoutSnapshot(t *testing.T) {
	ctx := newAuditContext(&auditPage{}, "https://s.test/none", "")
	assert.Error(t, NewSEO().Run(context.Background(), ctx))
}
