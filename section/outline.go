package section

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// ExtractHeadings returns every h1-h3 heading's trimmed text content in
// document order, for use as a manifest's outline. It is independent of
// the Components-section anchor logic: it walks the whole document.
func ExtractHeadings(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if lvl, ok := headingLevel[n.DataAtom]; ok && n.Type == html.ElementNode && lvl <= 3 {
			if text := strings.TrimSpace(textContent(n)); text != "" {
				out = append(out, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}
