package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/helpers"
)

// nonContentSelector lists elements removed before text extraction.
const nonContentSelector = "script, style, nav, footer, header, aside, iframe, noscript, form, button"

// contentPriority is tried in order; the whole document is the last resort.
var contentPriority = []string{"main", "article", "body"}

// Extractor turns an HTML document into a title and normalised text.
type Extractor struct {
	Mode     string
	MaxChars int
}

// Extract parses body and returns the page title (falling back to pageURL)
// and the cleaned content truncated to MaxChars.
func (e Extractor) Extract(body []byte, pageURL string) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}

	title = helpers.CollapseWhitespace(doc.Find("title").First().Text())

	if e.Mode == config.ExtractorReadability {
		content = e.readabilityText(body, pageURL)
	}
	if content == "" {
		doc.Find(nonContentSelector).Remove()
		content = helpers.CollapseWhitespace(nodeText(contentRoot(doc)))
	}
	if title == "" {
		title = pageURL
	}
	return title, helpers.Truncate(content, e.MaxChars), nil
}

func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, tag := range contentPriority {
		if sel := doc.Find(tag).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

func (e Extractor) readabilityText(body []byte, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}
	return helpers.CollapseWhitespace(article.TextContent)
}

// nodeText joins every text node under sel with spaces, so adjacent block
// elements do not run their words together.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
