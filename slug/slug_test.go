package slug

import (
	"reflect"
	"testing"
)

func TestResolveSlugsDeterministic(t *testing.T) {
	title := "The Catan: Card Game & Expansion (2nd Edition)"
	a := ResolveSlugs(title)
	b := ResolveSlugs(title)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("resolveSlugs not deterministic: %v vs %v", a, b)
	}
}

func TestResolveSlugsS1(t *testing.T) {
	title := "The Catan: Card Game & Expansion (2nd Edition)"
	got := ResolveSlugs(title)

	want := []string{
		"the-catan-card-game-expansion-2nd-edition",
		"catan-card-game-expansion-2nd-edition",
		"catan-card-game-expansion",
		"catan",
	}
	idx := make(map[string]int, len(got))
	for i, s := range got {
		idx[s] = i
	}
	prev := -1
	for _, w := range want {
		i, ok := idx[w]
		if !ok {
			t.Fatalf("expected slug %q in result %v", w, got)
		}
		if i <= prev {
			t.Fatalf("slug %q out of documented order in %v", w, got)
		}
		prev = i
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	got := normalize("Gràcia")
	if got != "gracia" {
		t.Fatalf("got %q, want %q", got, "gracia")
	}
}

func TestResolveSlugsNoDuplicates(t *testing.T) {
	got := ResolveSlugs("Catan")
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s] {
			t.Fatalf("duplicate slug %q in %v", s, got)
		}
		seen[s] = true
	}
}

func TestCandidateURLs(t *testing.T) {
	urls := CandidateURLs("https://example.com/", []string{"catan", "catan-junior"})
	want := []string{
		"https://example.com/catan/game-rules.php",
		"https://example.com/catan/index.php",
		"https://example.com/catan-junior/game-rules.php",
		"https://example.com/catan-junior/index.php",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q", i, urls[i], want[i])
		}
	}
}
