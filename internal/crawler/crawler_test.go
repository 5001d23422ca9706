package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<nav>Navigation to strip</nav>
<main>
<h1>%s</h1>
<p>Introductory paragraph about the feature.</p>
<h2>Usage</h2>
<ul><li>First step</li><li>Second step</li></ul>
<pre>run --fast</pre>
</main>
<footer>Footer to strip</footer>
</body>
</html>`

func newDocsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/docs/intro</loc></url>
  <url><loc>%s/docs/advanced</loc></url>
  <url><loc>%s/docs/missing</loc></url>
  <url><loc>https://elsewhere.example/outside</loc></url>
</urlset>`, server.URL, server.URL, server.URL)
	})
	mux.HandleFunc("/docs/intro", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, pageHTML, "Intro Page", "Introduction")
	})
	mux.HandleFunc("/docs/advanced", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, pageHTML, "Advanced Page", "Advanced Topics")
	})
	mux.HandleFunc("/docs/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchDocuments(t *testing.T) {
	server := newDocsServer(t)
	c := New([]Site{{
		Framework:  "testfw",
		SitemapURL: server.URL + "/sitemap.xml",
		BaseURL:    server.URL + "/docs/",
	}}, WithConcurrency(2))

	docs, err := c.FetchDocuments(context.Background(), "TestFW")
	require.NoError(t, err)

	// The 404 page and the off-site URL are dropped; order follows the
	// sitemap.
	require.Len(t, docs, 2)
	assert.Equal(t, server.URL+"/docs/intro", docs[0].URL)
	assert.Equal(t, server.URL+"/docs/advanced", docs[1].URL)

	assert.Equal(t, "Intro Page", docs[0].Title)
	assert.Equal(t, "testfw", docs[0].Framework)
	assert.False(t, docs[0].CrawledAt.IsZero())
	assert.Contains(t, docs[0].Content, "# Introduction")
	assert.Contains(t, docs[0].Content, "## Usage")
	assert.NotContains(t, docs[0].Content, "Navigation to strip")
	assert.NotContains(t, docs[0].Content, "Footer to strip")
}

func TestFetchDocumentsUnknownFramework(t *testing.T) {
	c := New(nil)
	_, err := c.FetchDocuments(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFetchDocumentsSitemapFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	c := New([]Site{{Framework: "testfw", SitemapURL: server.URL + "/sitemap.xml"}})
	_, err := c.FetchDocuments(context.Background(), "testfw")
	assert.Error(t, err)
}

func TestExtractMarkdown(t *testing.T) {
	title, content, err := ExtractMarkdown(fmt.Sprintf(pageHTML, "Page Title", "Heading One"))
	require.NoError(t, err)

	assert.Equal(t, "Page Title", title)
	assert.Contains(t, content, "# Heading One")
	assert.Contains(t, content, "Introductory paragraph about the feature.")
	assert.Contains(t, content, "- First step")
	assert.Contains(t, content, "- Second step")
	assert.Contains(t, content, "```\nrun --fast\n```")
	assert.NotContains(t, content, "Navigation to strip")
}

func TestExtractMarkdownFallsBackToBody(t *testing.T) {
	title, content, err := ExtractMarkdown(`<html><head></head><body>
<h1>Bare Page</h1><p>No main element here.</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Bare Page", title)
	assert.Contains(t, content, "No main element here.")
}
