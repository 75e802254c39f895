package section

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// anchorTexts is the multilingual, case-folded match set from spec §4.5.
var anchorTexts = []string{
	"components", "game components", "contents",
	"spielmaterial", "contenu", "componentes", "componenti",
	"matériel", "composants", "contenidos", "materiale", "material",
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// fallbackAnchorTags may qualify as an anchor when no heading does.
var fallbackAnchorTags = map[atom.Atom]bool{
	atom.Strong: true, atom.B: true, atom.P: true,
}

// fallbackAnchorLevel is lower priority than any real heading for section
// termination purposes: a bolded pseudo-heading never outranks an actual
// <h1>-<h6>, so the section it opens ends at the very next real heading of
// any level.
const fallbackAnchorLevel = 7

// anchorNode describes a qualifying Components-section anchor.
type anchorNode struct {
	node  *html.Node
	level int
}

// qualifiesAsAnchor reports whether n's trimmed, case-folded text content
// equals, or starts with, one of the anchorTexts, per spec §4.5.
func qualifiesAsAnchor(n *html.Node) bool {
	text := strings.ToLower(strings.TrimSpace(textContent(n)))
	if text == "" {
		return false
	}
	for _, a := range anchorTexts {
		if text == a || strings.HasPrefix(text, a) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// findAnchor walks doc in document order and returns the first qualifying
// heading (h1-h4 preferred); if none, the first qualifying fallback element
// (strong/b/p).
func findAnchor(doc *html.Node) (anchorNode, bool) {
	var fallback *anchorNode
	var walk func(*html.Node) (anchorNode, bool)
	walk = func(n *html.Node) (anchorNode, bool) {
		if n.Type == html.ElementNode {
			a := n.DataAtom
			if lvl, ok := headingLevel[a]; ok && lvl <= 4 && qualifiesAsAnchor(n) {
				return anchorNode{node: n, level: lvl}, true
			}
			if fallback == nil && fallbackAnchorTags[a] && qualifiesAsAnchor(n) {
				fallback = &anchorNode{node: n, level: fallbackAnchorLevel}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if res, ok := walk(c); ok {
				return res, true
			}
		}
		return anchorNode{}, false
	}
	if res, ok := walk(doc); ok {
		return res, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return anchorNode{}, false
}

// chromeMarkers are the class/id substrings that mark a node as surrounding
// page chrome rather than rules content, per spec §4.5.
var chromeMarkers = []string{"sidebar", "footer", "advert", "comments"}

// isChrome reports whether n's class or id attribute contains one of the
// chrome-filter markers from spec §4.5.
func isChrome(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		v := strings.ToLower(attr.Val)
		for _, marker := range chromeMarkers {
			if strings.Contains(v, marker) {
				return true
			}
		}
	}
	return false
}

// sectionBlock is one sibling-level unit of the Components section: the
// anchor itself (distance 0) or one subsequent sibling (distance 1, 2, ...).
type sectionBlock struct {
	node     *html.Node
	distance int
}

// collectSection returns the ordered blocks making up the Components
// section starting at anchor, per spec §4.5's "Section bounds": it walks
// anchor's subsequent siblings under their shared parent, stopping (without
// including) at the first sibling that is itself a heading of level <=
// anchor.level. A non-heading ancestor of anchor is never re-entered,
// matching spec §9's bounded-sibling-stream design note.
func collectSection(a anchorNode) []sectionBlock {
	blocks := []sectionBlock{{node: a.node, distance: 0}}
	parent := a.node.Parent
	if parent == nil {
		return blocks
	}
	dist := 1
	for sib := a.node.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			if lvl, ok := headingLevel[sib.DataAtom]; ok && lvl <= a.level {
				break
			}
		}
		blocks = append(blocks, sectionBlock{node: sib, distance: dist})
		dist++
	}
	return blocks
}
