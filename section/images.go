package section

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// bestURLAndSource resolves the best source URL for an <img> node following
// the preference order from spec §4.5 step 1: explicit src, then data-src,
// then the largest candidate parsed from srcset/data-srcset.
func bestURLAndSource(attrs map[string]string) (u string, fromSrcset bool) {
	if v := attrs["src"]; v != "" {
		return v, false
	}
	if v := attrs["data-src"]; v != "" {
		return v, false
	}
	for _, key := range []string{"srcset", "data-srcset"} {
		if v := attrs[key]; v != "" {
			if best, ok := largestSrcsetCandidate(v); ok {
				return best, true
			}
		}
	}
	return "", false
}

// largestSrcsetCandidate parses a srcset attribute value ("url1 1x, url2
// 2x" or "url1 200w, url2 400w") and returns the URL with the largest
// descriptor.
func largestSrcsetCandidate(srcset string) (string, bool) {
	var bestURL string
	var bestVal float64
	found := false
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		u := fields[0]
		val := 1.0
		if len(fields) > 1 {
			d := fields[1]
			switch {
			case strings.HasSuffix(d, "w"):
				if n, err := strconv.ParseFloat(strings.TrimSuffix(d, "w"), 64); err == nil {
					val = n
				}
			case strings.HasSuffix(d, "x"):
				if n, err := strconv.ParseFloat(strings.TrimSuffix(d, "x"), 64); err == nil {
					val = n * 1000 // scale density descriptors by 1000 so they share one axis with width descriptors
				}
			}
		}
		if !found || val > bestVal {
			bestVal, bestURL, found = val, u, true
		}
	}
	return bestURL, found
}

var upsizeToken = regexp.MustCompile(`(\d{2,4})x(\d{2,4})`)

// applyUpsizeHints honors numeric width/height tokens encoded in the URL
// path (e.g. "/200x150/image.jpg") by preferring the largest such token
// found, per spec §4.5 step 1's "Upsize hints" clause. It returns the
// width/height implied, if any.
func applyUpsizeHints(rawURL string) (w, h int, ok bool) {
	matches := upsizeToken.FindAllStringSubmatch(rawURL, -1)
	for _, m := range matches {
		mw, _ := strconv.Atoi(m[1])
		mh, _ := strconv.Atoi(m[2])
		if mw*mh > w*h {
			w, h, ok = mw, mh, true
		}
	}
	return
}

// trackingParams are stripped during canonicalization, per spec §4.5 step2.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "ref": true, "fbclid": true,
	"gclid": true,
}

// CanonicalizeURL strips tracking query parameters and normalizes
// percent-encoding, absolutizing relative URLs against base.
func CanonicalizeURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	abs := b.ResolveReference(u)
	if abs.RawQuery != "" {
		q := abs.Query()
		for k := range q {
			if trackingParams[strings.ToLower(k)] {
				q.Del(k)
			}
		}
		abs.RawQuery = q.Encode()
	}
	abs.Path = normalizePercentEncoding(abs.Path)
	return abs.String(), nil
}

func normalizePercentEncoding(p string) string {
	// Re-parse via url.PathUnescape+QueryEscape-equivalent round trip so
	// equivalent percent-encodings (e.g. %2F case) collapse to one form.
	if decoded, err := url.PathUnescape(p); err == nil {
		u := &url.URL{Path: decoded}
		return u.EscapedPath()
	}
	return p
}

// dimensions resolves an image's width/height following the preference
// order from spec §4.5 step 3, recording which SizeSource produced the
// answer.
func dimensions(attrs map[string]string, resolvedURL string, opts Options, isComponents bool) (w, h int, source string) {
	if wAttr, hAttr := attrs["width"], attrs["height"]; wAttr != "" && hAttr != "" {
		if wv, err1 := strconv.Atoi(wAttr); err1 == nil {
			if hv, err2 := strconv.Atoi(hAttr); err2 == nil {
				return wv, hv, SizeSourceAttrHint
			}
		}
	}
	if uw, uh, ok := applyUpsizeHints(resolvedURL); ok {
		return uw, uh, SizeSourceUrlToken
	}
	for _, key := range []string{"srcset", "data-srcset"} {
		if v := attrs[key]; v != "" {
			if uw, uh, ok := applyUpsizeHints(v); ok {
				return uw, uh, SizeSourceSrcsetHint
			}
		}
	}
	if opts.ProbeRemoteSize && opts.RemoteProbe != nil {
		if pw, ph, ok := opts.RemoteProbe(resolvedURL); ok {
			return pw, ph, SizeSourceRemote
		}
	}
	if isComponents {
		return 320, 240, SizeSourceHeuristic
	}
	return 200, 150, SizeSourceHeuristic
}

var altMatchRe = regexp.MustCompile(`(?i)component|setup|cards?|board|tokens?|tiles?`)

func pathHintsMatch(u string) bool {
	lu := strings.ToLower(u)
	return strings.Contains(lu, "/img/") || strings.Contains(lu, "/images/") || strings.Contains(lu, "/pics/")
}

func isRejected(rawURL string, w, h int) bool {
	lu := strings.ToLower(rawURL)
	if strings.HasSuffix(lu, ".svg") || strings.HasSuffix(lu, ".gif") {
		return true
	}
	if w > 0 && h > 0 && w < 120 && h < 120 {
		return true
	}
	return false
}

// score computes an image's score per spec §4.5 step 5.
func score(isComponents bool, alt string, resolvedURL string, distance int) float64 {
	s := 10.0
	if isComponents {
		s = 50.0
	}
	if altMatchRe.MatchString(alt) {
		s += 10
	}
	if pathHintsMatch(resolvedURL) {
		s += 2
	}
	return s
}

// collectAttrs maps an html.Node's attributes by key.
func collectAttrs(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

func isImgNode(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Img
}

// dedupeAndRank collapses images by canonical URL with query stripped,
// ranks by score descending, tie-breaking by pixel area descending, per
// spec §4.5's "Deduplication and ranking".
func dedupeAndRank(images []ExtractedImage) []ExtractedImage {
	best := make(map[string]ExtractedImage)
	order := make([]string, 0, len(images))
	for _, img := range images {
		key := strippedQueryKey(img.URL)
		existing, ok := best[key]
		if !ok {
			best[key] = img
			order = append(order, key)
			continue
		}
		if betterImage(img, existing) {
			best[key] = img
		}
	}
	out := make([]ExtractedImage, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Width*out[i].Height > out[j].Width*out[j].Height
	})
	return out
}

func betterImage(a, b ExtractedImage) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Width*a.Height > b.Width*b.Height
}

func strippedQueryKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
