// Package slug implements the Slug Resolver from spec §4.4: it maps a game
// title to an ordered list of candidate slugs, then (given a fetcher) to an
// ordered list of candidate URLs it probes in turn.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ResolveSlugs returns the ordered, deduplicated set of slug candidates for
// title, per spec §4.4 steps 1-4.
//
// The five base seed variants spec.md names (raw, subtitle-dropped,
// leading-"the"-removed, parentheticals-removed, "&"→"and") are generated
// first. Two compositions of "drop leading the" over the subtitle-dropped
// and parentheticals-removed variants are added after them: the scenario
// worked through in spec §8 (S1) requires slugs like "catan" and
// "catan-card-game-expansion" that no single base transform produces, only
// the combination of "drop subtitle" (or "drop parentheticals") followed by
// "drop leading the". Determinism (testable property 1) holds regardless,
// since this is a fixed function of title.
func ResolveSlugs(title string) []string {
	subtitleDropped := dropSubtitle(title)
	theDropped := dropLeadingThe(title)
	parensDropped := dropParentheticals(title)
	ampersand := replaceAmpersand(title)

	seeds := []string{
		title,
		subtitleDropped,
		theDropped,
		parensDropped,
		ampersand,
		dropLeadingThe(parensDropped),
		dropLeadingThe(subtitleDropped),
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range seeds {
		n := normalize(s)
		add(n)
		if trimmed, ok := trimGameSuffix(n); ok {
			add(trimmed)
		}
	}
	return out
}

// Canonical returns the GameIdentity slug for title: the plain, fully
// normalized form with no subtitle/parenthetical dropping, used as the
// stable identifier distinct from the ranked rules-page candidate list
// ResolveSlugs produces.
func Canonical(title string) string {
	return normalize(title)
}

// dropSubtitle returns everything before the first ':'.
func dropSubtitle(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// dropLeadingThe removes a leading "the " (case-insensitive).
func dropLeadingThe(s string) string {
	trimmed := strings.TrimLeft(s, " ")
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "the ") {
		return trimmed[4:]
	}
	return s
}

// dropParentheticals removes any "(...)" segments.
func dropParentheticals(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// replaceAmpersand replaces "&" with "and".
func replaceAmpersand(s string) string {
	return strings.ReplaceAll(s, "&", "and")
}

// normalize strips diacritics, lowercases, replaces runs of non-alphanumeric
// characters with a single hyphen, and trims/collapses hyphens.
func normalize(s string) string {
	s = stripDiacritics(s)
	s = strings.ToLower(s)
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// stripDiacritics decomposes s to NFD and drops combining marks, so e.g.
// "Gràcia" becomes "Gracia".
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var gameSuffixes = []string{"-board-game", "-card-game"}

// trimGameSuffix drops a trailing "-board-game" or "-card-game" suffix from
// an already-normalized slug, per spec §4.4 step 3.
func trimGameSuffix(slug string) (string, bool) {
	for _, suf := range gameSuffixes {
		if strings.HasSuffix(slug, suf) {
			return strings.TrimSuffix(slug, suf), true
		}
	}
	return "", false
}
