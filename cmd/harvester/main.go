// Command harvester is a thin demonstration host around the core
// Rulebook Ingestion & Component-Image Harvester package set. The core
// exposes callable contracts, not a transport (see SPEC_FULL.md §3); this
// binary is one such host, wiring a single HTTP debug endpoint on top.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/artyom/autoflags"
	"github.com/artyom/httpflags"

	"github.com/tabletop-tutor/harvester/bgg"
	"github.com/tabletop-tutor/harvester/diskcache"
	"github.com/tabletop-tutor/harvester/governor"
	"github.com/tabletop-tutor/harvester/htmlfetch"
	"github.com/tabletop-tutor/harvester/httpx"
	"github.com/tabletop-tutor/harvester/pdfingest"
	"github.com/tabletop-tutor/harvester/pipeline"
	"github.com/tabletop-tutor/harvester/section"
)

type config struct {
	Listen       string        `flag:"listen,address to listen on for the debug endpoint"`
	DataDir      string        `flag:"data,DATA_DIR root for cache and manifests"`
	BggQPS       float64       `flag:"bgg-qps,BGG_RATE_LIMIT_QPS value passed to the BGG client (spacing comes from the governor)"`
	BggCacheTTL  time.Duration `flag:"bgg-cache-ttl,BGG_CACHE_TTL_MS cache freshness window"`
	ProbeSize    bool          `flag:"probe-size,UBG_PROBE_SIZE enable HEAD-probe of remote image dimensions"`
	RulesBaseURL string        `flag:"rules-base,base URL for the rules-site slug resolver"`
}

func main() {
	cfg := config{
		Listen:       "127.0.0.1:8080",
		DataDir:      envOr("DATA_DIR", "./data"),
		BggQPS:       envFloatOr("BGG_RATE_LIMIT_QPS", bgg.DefaultQPS),
		BggCacheTTL:  envMillisOr("BGG_CACHE_TTL_MS", bgg.DefaultCacheTTL),
		ProbeSize:    os.Getenv("UBG_PROBE_SIZE") == "1",
		RulesBaseURL: "https://ultraboardgames.com",
	}
	autoflags.Define(&cfg)
	flag.Parse()

	logger := log.New(os.Stderr, "harvester: ", log.LstdFlags)

	httpClient := httpx.New(httpx.WithTimeout(10 * time.Second))
	gov := governor.New()
	cache := diskcache.New(cfg.DataDir+"/cache", diskcache.WithLogger(logger))
	fetcher := htmlfetch.New(cache, gov, httpClient)
	bggClient := bgg.New(httpClient, cache, gov, bgg.WithQPS(cfg.BggQPS), bgg.WithCacheTTL(cfg.BggCacheTTL))
	pdfIngestor := pdfingest.New(nil)

	p := pipeline.New(pdfIngestor, bggClient, fetcher, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", ingestHandler(p, cfg, logger))

	logger.Printf("listening on %s", cfg.Listen)
	logger.Fatal(http.ListenAndServe(cfg.Listen, mux))
}

func ingestHandler(p *pipeline.Pipeline, cfg config, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := struct {
			Title      string `flag:"title"`
			BggID      string `flag:"bggId"`
			PdfPath    string `flag:"pdfPath"`
			ExternalOK bool   `flag:"external"`
		}{}
		if err := httpflags.Parse(&args, r); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		req := pipeline.Request{
			Title:           args.Title,
			BggIDOrURL:      args.BggID,
			PdfPath:         args.PdfPath,
			ExternalHarvest: args.ExternalOK,
			RulesBaseURL:    cfg.RulesBaseURL,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
		defer cancel()

		sectionOpts := section.Options{ProbeRemoteSize: cfg.ProbeSize}
		if cfg.ProbeSize {
			sectionOpts.RemoteProbe = section.HTTPRemoteProbe(nil)
		}
		opts := pipeline.Options{SectionOpts: sectionOpts}
		m, err := p.Run(ctx, req, opts)
		if err != nil {
			logger.Print(err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(data)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envMillisOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
