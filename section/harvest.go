package section

import (
	"bytes"

	"golang.org/x/net/html"
)

// ExtractImagesFromRulesPage implements spec §4.5's public entry point: it
// parses body, locates the Components section anchor, harvests images
// nearby, and falls back to a page-wide scan when no anchor is found or the
// section yields no usable image.
func ExtractImagesFromRulesPage(body []byte, pageURL string, opts Options) ([]ExtractedImage, error) {
	opts = opts.withDefaults()

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var collected []ExtractedImage
	if anchor, ok := findAnchor(doc); ok {
		blocks := collectSection(anchor)
		collected = harvestBlocks(blocks, pageURL, opts, true)
	}
	if len(collected) == 0 {
		collected = harvestPage(doc, pageURL, opts)
	}

	ranked := dedupeAndRank(collected)
	if len(ranked) > opts.MaxImages {
		ranked = ranked[:opts.MaxImages]
	}
	return ranked, nil
}

func harvestBlocks(blocks []sectionBlock, pageURL string, opts Options, inComponents bool) []ExtractedImage {
	var out []ExtractedImage
	for _, b := range blocks {
		if b.node.Type == html.ElementNode && isChrome(b.node) {
			continue
		}
		walkImages(b.node, pageURL, opts, inComponents, b.distance, &out)
	}
	return out
}

// harvestPage is the page-wide fallback used when no Components anchor is
// found anywhere in the document, or the section yields no usable image,
// per spec §4.5's "Fallback" step: every image on the page is scored with
// context "page" at a fixed distance of 0, excluding chrome regions.
func harvestPage(doc *html.Node, pageURL string, opts Options) []ExtractedImage {
	var out []ExtractedImage
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isChrome(n) {
			return
		}
		if isImgNode(n) {
			if img, ok := buildImage(n, pageURL, opts, false, 0); ok {
				out = append(out, img)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// walkImages visits n and its descendants (but does not itself recurse into
// n's siblings) collecting <img> elements into out.
func walkImages(n *html.Node, pageURL string, opts Options, inComponents bool, distance int, out *[]ExtractedImage) {
	if isImgNode(n) {
		if img, ok := buildImage(n, pageURL, opts, inComponents, distance); ok {
			*out = append(*out, img)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkImages(c, pageURL, opts, inComponents, distance, out)
	}
}

func buildImage(n *html.Node, pageURL string, opts Options, inComponents bool, distance int) (ExtractedImage, bool) {
	attrs := collectAttrs(n)
	raw, _ := bestURLAndSource(attrs)
	if raw == "" {
		return ExtractedImage{}, false
	}
	resolved, err := CanonicalizeURL(pageURL, raw)
	if err != nil {
		return ExtractedImage{}, false
	}

	w, h, src := dimensions(attrs, resolved, opts, inComponents)
	if isRejected(resolved, w, h) {
		return ExtractedImage{}, false
	}

	alt := attrs["alt"]
	ctx := ContextPage
	if inComponents {
		ctx = ContextComponents
	}

	img := ExtractedImage{
		URL:        resolved,
		Width:      w,
		Height:     h,
		Alt:        alt,
		Context:    ctx,
		Distance:   distance,
		Proximity:  proximityFactor(distance),
		SizeSource: src,
	}
	img.Score = score(inComponents, alt, resolved, distance)
	img.Focus = opts.FocusAnalyzer(&img)
	return img, true
}
