package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHrefs(t *testing.T) {
	html := `<html><body>
		<a href="/a">A</a>
		<a>no href</a>
		<div><a href="https://other.com/x">X</a></div>
		<a href="#">top</a>
	</body></html>`

	hrefs, err := ExtractHrefs(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "https://other.com/x", "#"}, hrefs)
}

func TestExtractHrefsMalformedHTML(t *testing.T) {
	hrefs, err := ExtractHrefs(strings.NewReader(`<a href="/ok">unclosed <div><a href="/b"`))
	require.NoError(t, err)
	assert.Contains(t, hrefs, "/ok")
}

func TestResolveLinks(t *testing.T) {
	tests := []struct {
		name string
		page string
		href string
		want []string
	}{
		{"absolute", "http://example.com/dir/page", "https://other.com/x", []string{"https://other.com/x"}},
		{"root relative", "http://example.com/dir/page", "/a", []string{"http://example.com/a"}},
		{"path relative", "http://example.com/dir/page", "b", []string{"http://example.com/dir/b"}},
		{"parent", "http://example.com/dir/sub/page", "../c", []string{"http://example.com/dir/c"}},
		{"scheme relative", "https://example.com/", "//cdn.example.com/d", []string{"https://cdn.example.com/d"}},
		{"query only", "http://example.com/p", "?q=1", []string{"http://example.com/p?q=1"}},
		{"fragment placeholder kept", "http://example.com/p", "#", []string{"#"}},
		{"fragment", "http://example.com/p", "#top", []string{"http://example.com/p#top"}},
		{"whitespace trimmed", "http://example.com/", "  /e  ", []string{"http://example.com/e"}},
		{"unparseable dropped", "http://example.com/", "http://[::1", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLinks(tt.page, []string{tt.href}))
		})
	}
}
