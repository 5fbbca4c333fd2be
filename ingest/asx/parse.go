package asx

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// parseAnnouncements walks the announcements table and yields one record per
// row that carries a headline link.
func parseAnnouncements(r io.Reader, ticker, baseURL string) ([]Announcement, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var anns []Announcement
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return true
		}
		ann, ok := parseRow(n, ticker, baseURL)
		if ok {
			anns = append(anns, ann)
		}
		return false
	})
	return anns, nil
}

func parseRow(tr *html.Node, ticker, baseURL string) (Announcement, bool) {
	var cells []string
	var href, linkText string

	walk(tr, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "td":
			cells = append(cells, strings.TrimSpace(nodeText(n)))
		case "a":
			if href == "" {
				href = attr(n, "href")
				linkText = strings.TrimSpace(nodeText(n))
			}
		}
		return true
	})

	if len(cells) == 0 || href == "" {
		return Announcement{}, false
	}

	title := linkText
	if title == "" {
		title = cells[len(cells)-1]
	}
	// headline cells carry a trailing "123 pages, 1.2MB" annotation
	if idx := strings.Index(title, "\n"); idx > 0 {
		title = strings.TrimSpace(title[:idx])
	}

	date := parseDate(firstWord(cells[0]))
	return Announcement{
		Date:       date.Format("2006-01-02"),
		Ticker:     ticker,
		Title:      title,
		FilingType: ClassifyTitle(title),
		PageURL:    absoluteURL(baseURL, href),
	}, true
}

// ExtractPDFURL pulls the real PDF location out of the ASX agreement page.
// The page carries it in a hidden pdfURL input; a raw regex over the body is
// the fallback for layout changes.
func ExtractPDFURL(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err == nil {
		var found string
		walk(doc, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "pdfURL" {
				if v := attr(n, "value"); strings.HasSuffix(strings.ToLower(v), ".pdf") {
					found = v
					return false
				}
			}
			return true
		})
		if found != "" {
			return absoluteURL("https://announcements.asx.com.au", found)
		}
	}
	return pdfURLPattern.FindString(page)
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// walk visits nodes depth first; fn returning false prunes the subtree.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
