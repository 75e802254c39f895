package section

import (
	"reflect"
	"testing"
)

const s3Fixture = `<html><body>
<div id="sidebar"><img src="/ads/banner.jpg" width="300" height="250" alt="advert"></div>
<h3>Spielmaterial</h3>
<p>Some intro text.</p>
<div>
  <img src="/img/board.jpg" width="400" height="300" alt="game board component">
  <img src="/img/cards.jpg" width="150" height="150" alt="component cards">
</div>
<h2>Setup</h2>
<img src="/img/setup-step1.jpg" width="200" height="150" alt="setup step">
</body></html>`

func TestExtractImages_S3_SpielmaterialHeading(t *testing.T) {
	got, err := ExtractImagesFromRulesPage([]byte(s3Fixture), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected at least one image, got none")
	}
	var found bool
	for _, img := range got {
		if img.Context != ContextComponents {
			continue
		}
		if img.Score >= 50 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a components-nearby image scoring >= 50, got %+v", got)
	}
	for _, img := range got {
		if img.Context == ContextComponents && img.URL == "https://example.com/ads/banner.jpg" {
			t.Fatalf("sidebar image leaked into components section: %+v", img)
		}
	}
}

func TestExtractImages_Deterministic(t *testing.T) {
	a, err := ExtractImagesFromRulesPage([]byte(s3Fixture), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ExtractImagesFromRulesPage([]byte(s3Fixture), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("harvest not deterministic:\n%+v\nvs\n%+v", a, b)
	}
}

func TestExtractImages_ScoringMonotonicity(t *testing.T) {
	got, err := ExtractImagesFromRulesPage([]byte(s3Fixture), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatal(err)
	}
	// All else equal: compare board.jpg as harvested against the score the
	// same image would get in page context, and without a matching alt.
	board := findByURL(got, "https://example.com/img/board.jpg")
	if board == nil || board.Context != ContextComponents {
		t.Fatalf("expected board.jpg harvested in components context, got %+v", got)
	}
	if pageScore := score(false, board.Alt, board.URL, board.Distance); board.Score <= pageScore {
		t.Fatalf("expected components-context image to outscore the same image in page context: %v vs %v", board.Score, pageScore)
	}
	if noAltScore := score(true, "", board.URL, board.Distance); board.Score <= noAltScore {
		t.Fatalf("expected alt-matching image to outscore the same image without a matching alt: %v vs %v", board.Score, noAltScore)
	}
}

func findByURL(imgs []ExtractedImage, u string) *ExtractedImage {
	for i := range imgs {
		if imgs[i].URL == u {
			return &imgs[i]
		}
	}
	return nil
}

func TestExtractImages_PageFallbackWhenNoAnchor(t *testing.T) {
	body := `<html><body><img src="/img/random.jpg" width="300" height="200" alt="random"></body></html>`
	got, err := ExtractImagesFromRulesPage([]byte(body), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Context != ContextPage {
		t.Fatalf("expected single page-context image, got %+v", got)
	}
}

func TestExtractImages_RejectsSmallAndSVG(t *testing.T) {
	body := `<html><body><h2>Components</h2>
<img src="/img/icon.svg" width="200" height="200" alt="icon">
<img src="/img/tiny.jpg" width="50" height="50" alt="tiny">
</body></html>`
	got, err := ExtractImagesFromRulesPage([]byte(body), "https://example.com/game/index.php", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected rejection of svg and sub-120px images, got %+v", got)
	}
}

func TestExtractImages_MaxImagesCutoff(t *testing.T) {
	var body = `<html><body><h2>Components</h2>`
	for i := 0; i < 15; i++ {
		body += `<img src="/img/c` + string(rune('a'+i)) + `.jpg" width="200" height="200" alt="component piece">`
	}
	body += `</body></html>`
	got, err := ExtractImagesFromRulesPage([]byte(body), "https://example.com/game/index.php", Options{MaxImages: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("expected MaxImages cutoff of 5, got %d", len(got))
	}
}
