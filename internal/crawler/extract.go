package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// mainSelectors are tried in order to locate the primary content area
// of a documentation page before falling back to <body>.
var mainSelectors = []string{
	"main", "article", "[role=main]", ".content", ".documentation", "#content",
}

var blankRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)

// ExtractMarkdown converts a documentation page's HTML into a markdown
// approximation suitable for chunking, and returns the page title.
func ExtractMarkdown(html string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, aside, header, .sidebar, .toc").Remove()

	var main *goquery.Selection
	for _, selector := range mainSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			main = sel.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	var b strings.Builder
	main.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			b.WriteString("# " + text + "\n\n")
		case "h2":
			b.WriteString("## " + text + "\n\n")
		case "h3":
			b.WriteString("### " + text + "\n\n")
		case "h4", "h5", "h6":
			b.WriteString("#### " + text + "\n\n")
		case "p":
			// Paragraphs nested in list items or blockquotes are already
			// emitted by their container.
			if s.Closest("li, blockquote").Length() > 0 {
				return
			}
			b.WriteString(text + "\n\n")
		case "li":
			b.WriteString("- " + strings.Join(strings.Fields(text), " ") + "\n")
		case "pre":
			b.WriteString("```\n" + s.Text() + "\n```\n\n")
		case "blockquote":
			b.WriteString("> " + text + "\n\n")
		}
	})

	return title, cleanContent(b.String()), nil
}

// cleanContent collapses runs of blank lines and trims the result.
func cleanContent(content string) string {
	content = blankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
