package redirect

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindMetaRefresh(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "absolute target",
			html: `<html><head><meta http-equiv="refresh" content="0; url=https://r.test/next"></head></html>`,
			want: "https://r.test/next",
		},
		{
			name: "relative target resolved against base",
			html: `<html><head><meta http-equiv="refresh" content="5; url=/next"></head></html>`,
			want: "https://r.test/next",
		},
		{
			name: "quoted url",
			html: `<html><head><meta http-equiv="refresh" content="0; url='https://r.test/q'"></head></html>`,
			want: "https://r.test/q",
		},
		{
			name: "case insensitive http-equiv",
			html: `<html><head><meta http-equiv="REFRESH" content="0; URL=https://r.test/caps"></head></html>`,
			want: "https://r.test/caps",
		},
		{
			name: "plain delay without url is not a redirect",
			html: `<html><head><meta http-equiv="refresh" content="30"></head></html>`,
			want: "",
		},
		{
			name: "no meta",
			html: `<html><head></head></html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findMetaRefresh(parseDoc(t, tt.html), "https://r.test/page")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindScriptRedirect(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "href assignment",
			html: `<html><body><script>window.location.href = "https://r.test/js";</script></body></html>`,
			want: "https://r.test/js",
		},
		{
			name: "location assignment",
			html: `<html><body><script>window.location = 'https://r.test/loc';</script></body></html>`,
			want: "https://r.test/loc",
		},
		{
			name: "replace call",
			html: `<html><body><script>window.location.replace("https://r.test/rep");</script></body></html>`,
			want: "https://r.test/rep",
		},
		{
			name: "relative target is not matched",
			html: `<html><body><script>window.location.href = "/relative";</script></body></html>`,
			want: "",
		},
		{
			name: "external script is skipped",
			html: `<html><body><script src="/app.js"></script></body></html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findScriptRedirect(parseDoc(t, tt.html))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameURL(t *testing.T) {
	assert.True(t, sameURL("https://R.Test/", "https://r.test"))
	assert.True(t, sameURL("https://r.test/a#frag", "https://r.test/a"))
	assert.False(t, sameURL("https://r.test/a", "https://r.test/b"))
	assert.False(t, sameURL("https://r.test/a", "http://r.test/a"))
}
