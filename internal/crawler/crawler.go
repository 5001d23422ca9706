package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"docsrag/internal/domain"
)

// DefaultConcurrency bounds concurrent page fetches per site.
const DefaultConcurrency = 8

const userAgent = "docsrag/1.0 (documentation indexer)"

// Site describes one documentation site to crawl.
type Site struct {
	Framework  string
	SitemapURL string
	BaseURL    string
}

// Crawler fetches documentation pages listed in a site's sitemap and
// converts them to markdown documents. Individual page failures are
// logged and skipped; only a failure to fetch the sitemap itself aborts
// the crawl.
type Crawler struct {
	sites       map[string]Site
	client      *http.Client
	concurrency int
	log         *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithConcurrency sets the number of concurrent page fetches.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the crawl logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Crawler) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Crawler over the given sites, keyed by framework name.
func New(sites []Site, opts ...Option) *Crawler {
	c := &Crawler{
		sites:       make(map[string]Site, len(sites)),
		client:      &http.Client{Timeout: 30 * time.Second},
		concurrency: DefaultConcurrency,
		log:         slog.Default(),
	}
	for _, site := range sites {
		c.sites[strings.ToLower(site.Framework)] = site
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sitemap struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// FetchDocuments crawls every page listed in the framework's sitemap
// and returns the extracted documents in sitemap order. Pages that fail
// to fetch or parse are skipped.
func (c *Crawler) FetchDocuments(ctx context.Context, framework string) ([]domain.Document, error) {
	site, ok := c.sites[strings.ToLower(strings.TrimSpace(framework))]
	if !ok {
		return nil, fmt.Errorf("crawler: unknown framework %q", framework)
	}

	urls, err := c.fetchSitemap(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap for %s: %w", site.Framework, err)
	}
	c.log.Info("sitemap fetched", "framework", site.Framework, "pages", len(urls))

	docs := make([]domain.Document, len(urls))
	fetched := make([]bool, len(urls))

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.concurrency)
	for i, pageURL := range urls {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			doc, err := c.fetchPage(ctx, site, pageURL)
			if err != nil {
				c.log.Warn("page fetch failed, skipping", "url", pageURL, "error", err)
				return
			}
			docs[i] = doc
			fetched[i] = true
		}(i, pageURL)
	}
	wg.Wait()

	kept := docs[:0]
	for i := range docs {
		if fetched[i] {
			kept = append(kept, docs[i])
		}
	}
	c.log.Info("crawl finished",
		"framework", site.Framework, "pages", len(urls), "fetched", len(kept))
	return kept, nil
}

// fetchSitemap downloads and parses the site's sitemap.xml, keeping
// only URLs under the site's base URL when one is configured.
func (c *Crawler) fetchSitemap(ctx context.Context, site Site) ([]string, error) {
	body, err := c.get(ctx, site.SitemapURL)
	if err != nil {
		return nil, err
	}

	var sm sitemap
	if err := xml.Unmarshal(body, &sm); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	var urls []string
	for _, entry := range sm.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		if site.BaseURL != "" && !strings.HasPrefix(loc, site.BaseURL) {
			continue
		}
		urls = append(urls, loc)
	}
	return urls, nil
}

func (c *Crawler) fetchPage(ctx context.Context, site Site, pageURL string) (domain.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return domain.Document{}, err
	}

	title, content, err := ExtractMarkdown(string(body))
	if err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("no extractable content")
	}

	return domain.Document{
		URL:       pageURL,
		Title:     title,
		Content:   content,
		Framework: strings.ToLower(site.Framework),
		CrawledAt: time.Now().UTC(),
	}, nil
}

func (c *Crawler) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
