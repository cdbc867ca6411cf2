// Package report turns the generated analysis report into a standalone HTML
// page, an outline of its sections, or a PDF.
package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/resume-wizard/internal/markdown"
)

const pageStyle = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;max-width:820px;margin:32px auto;padding:0 24px;color:#1f2328;line-height:1.5}
h1{border-bottom:1px solid #d0d7de;padding-bottom:6px}
h2{margin-top:28px;color:#0b4f8a}
ul{padding-left:22px}
li{margin:4px 0}`

// Document wraps the rendered report in a full HTML page
func Document(title, markdownText string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<style>%s</style>\n", pageStyle)
	b.WriteString("</head>\n<body>\n")
	b.WriteString(markdown.Render(markdownText))
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// Heading is one entry of the report outline
type Heading struct {
	Level   int      `json:"level"`
	Text    string   `json:"text"`
	Bullets []string `json:"bullets,omitempty"`
}

// Outline lists the h1-h3 headings of rendered HTML in document order, each
// with the text of the list items that follow it before the next heading.
func Outline(htmlContent string) ([]Heading, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report HTML: %w", err)
	}

	outline := []Heading{}
	doc.Find("h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch node := goquery.NodeName(s); node {
		case "li":
			if len(outline) > 0 && text != "" {
				last := &outline[len(outline)-1]
				last.Bullets = append(last.Bullets, text)
			}
		default:
			outline = append(outline, Heading{Level: int(node[1] - '0'), Text: text})
		}
	})
	return outline, nil
}
