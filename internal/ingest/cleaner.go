package ingest

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var reBlankLines = regexp.MustCompile(`\n{3,}`)

// ExtractText strips a faculty page down to readable text. Readability finds
// the main content; goquery drops leftover chrome. If readability rejects the
// page (sparse academic home pages often trip it), fall back to whole-body
// text.
func ExtractText(rawHTML, pageURL string) string {
	if rawHTML == "" {
		return ""
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return tidyText(article.TextContent)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer, header, aside, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
	})
	return tidyText(b.String())
}

func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
