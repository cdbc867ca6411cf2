// Package markdown converts the constrained markdown of generated reports to
// HTML. Supported: level 1-3 headers, **bold**, "- " bullet lists and
// paragraphs. There is no escaping, nesting, links or images.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	headerLine = regexp.MustCompile(`^(#{1,3}) (.*)$`)
	bulletLine = regexp.MustCompile(`^- (.*)$`)
	bold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	blankLines = regexp.MustCompile(`\n[ \t]*\n`)
)

type blockKind int

const (
	kindText blockKind = iota
	kindHeader
	kindList
)

// Render converts text to HTML markup, one element per line of output
func Render(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var out []string
	for _, block := range blankLines.Split(text, -1) {
		rendered := renderBlock(block)
		// lists separated only by blank lines are one list
		if len(out) > 0 && len(rendered) > 0 && isList(out[len(out)-1]) && isList(rendered[0]) {
			last := len(out) - 1
			out[last] = strings.TrimSuffix(out[last], "</ul>") + strings.TrimPrefix(rendered[0], "<ul>")
			rendered = rendered[1:]
		}
		out = append(out, rendered...)
	}
	return strings.Join(out, "\n")
}

func isList(element string) bool {
	return strings.HasPrefix(element, "<ul>") && strings.HasSuffix(element, "</ul>")
}

// renderBlock splits one blank-line separated block into headers, lists and
// paragraphs. Adjacent bullets share one list; adjacent text lines share one
// paragraph joined by <br>.
func renderBlock(block string) []string {
	var (
		out     []string
		current []string
		kind    blockKind
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		switch kind {
		case kindList:
			out = append(out, "<ul>"+strings.Join(current, "")+"</ul>")
		case kindText:
			out = append(out, "<p>"+strings.Join(current, "<br>")+"</p>")
		}
		current = nil
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))
			kind = kindHeader
			continue
		}
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if kind != kindList {
				flush()
				kind = kindList
			}
			current = append(current, "<li>"+inline(m[1])+"</li>")
			continue
		}
		if kind != kindText {
			flush()
			kind = kindText
		}
		current = append(current, inline(line))
	}
	flush()
	return out
}

func inline(s string) string {
	return bold.ReplaceAllString(s, "<b>$1</b>")
}
