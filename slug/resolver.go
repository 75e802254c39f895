package slug

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tabletop-tutor/harvester/htmlfetch"
)

// ErrNotFound is returned when every candidate URL was tried without a 2xx
// response, mapping to spec §7's HARVEST_NOT_FOUND.
var ErrNotFound = errors.New("slug: no candidate rules page responded with 2xx")

// anchorTexts the overview-page follow logic recognizes, per spec §4.4.
var anchorTexts = []string{"game rules", "basic game rules"}

// Fetcher is the subset of htmlfetch.Fetcher the resolver depends on.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (*htmlfetch.Result, error)
}

// Resolver probes candidate rules-page URLs for a title against a single
// base host.
type Resolver struct {
	baseURL string // e.g. "https://ultraboardgames.com"
	fetcher Fetcher
}

// New returns a Resolver that probes candidates under baseURL.
func New(baseURL string, fetcher Fetcher) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	RulesURL  string
	Slug      string
	TriedURLs []string
}

// CandidateURLs returns, for each slug in order, "/{slug}/game-rules.php"
// then "/{slug}/index.php" under base, per spec §4.4.
func CandidateURLs(base string, slugs []string) []string {
	base = strings.TrimRight(base, "/")
	urls := make([]string, 0, len(slugs)*2)
	for _, s := range slugs {
		urls = append(urls, base+"/"+s+"/game-rules.php")
		urls = append(urls, base+"/"+s+"/index.php")
	}
	return urls
}

// Resolve generates candidate URLs for title and probes them in order,
// following an overview page's "Game Rules"/"Basic Game Rules" link when
// found. The first 2xx response wins; every URL attempted is recorded for
// diagnostics, per spec §4.4.
func (r *Resolver) Resolve(ctx context.Context, title string) (*Resolution, error) {
	slugs := ResolveSlugs(title)
	tried := make([]string, 0, len(slugs)*2)

	for _, s := range slugs {
		rulesURL := r.baseURL + "/" + s + "/game-rules.php"
		tried = append(tried, rulesURL)
		if res, ok := r.probe(ctx, rulesURL); ok {
			return &Resolution{RulesURL: res, Slug: s, TriedURLs: tried}, nil
		}

		overviewURL := r.baseURL + "/" + s + "/index.php"
		tried = append(tried, overviewURL)
		result, err := r.fetcher.FetchHTML(ctx, overviewURL)
		if err != nil || result.Outcome == htmlfetch.FAIL {
			continue
		}
		if link, ok := findAnchorLink(result.Body, anchorTexts); ok {
			resolved, err := resolveRelative(overviewURL, link)
			if err == nil {
				tried = append(tried, resolved)
				if res, ok := r.probe(ctx, resolved); ok {
					return &Resolution{RulesURL: res, Slug: s, TriedURLs: tried}, nil
				}
			}
			continue
		}
		// The overview page itself responded with 2xx; treat it as the
		// rules page if no more specific link was found.
		if result.Outcome != htmlfetch.FAIL {
			return &Resolution{RulesURL: overviewURL, Slug: s, TriedURLs: tried}, nil
		}
	}
	return &Resolution{TriedURLs: tried}, fmt.Errorf("%w: title %q", ErrNotFound, title)
}

func (r *Resolver) probe(ctx context.Context, candidateURL string) (string, bool) {
	result, err := r.fetcher.FetchHTML(ctx, candidateURL)
	if err != nil || result.Outcome == htmlfetch.FAIL {
		return "", false
	}
	return result.FinalURL, true
}

func resolveRelative(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(u).String(), nil
}

// findAnchorLink walks the HTML body for the first <a> element whose
// trimmed, case-folded text matches one of wanted, returning its href.
func findAnchorLink(body []byte, wanted []string) (href string, found bool) {
	z := html.NewTokenizer(bytes.NewReader(body))
	var curHref string
	var inAnchor bool
	var textBuf strings.Builder
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.A {
				continue
			}
			inAnchor = true
			textBuf.Reset()
			curHref = ""
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "href" {
					curHref = string(v)
				}
			}
		case html.TextToken:
			if inAnchor {
				textBuf.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.A && inAnchor {
				text := strings.ToLower(strings.TrimSpace(textBuf.String()))
				for _, w := range wanted {
					if text == w {
						return curHref, true
					}
				}
				inAnchor = false
			}
		}
	}
}
