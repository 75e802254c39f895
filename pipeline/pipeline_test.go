package pipeline

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tabletop-tutor/harvester/bgg"
	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/diskcache"
	"github.com/tabletop-tutor/harvester/governor"
	"github.com/tabletop-tutor/harvester/httpx"
)

func fixedTime() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestRun_NoSubsystemsConfigured(t *testing.T) {
	fc := clock.NewFake(fixedTime())
	p := New(nil, nil, nil, fc)

	m, err := p.Run(context.Background(), Request{Title: "Catan"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Game.Slug != "catan" {
		t.Fatalf("expected slug %q, got %q", "catan", m.Game.Slug)
	}
	if m.Game.Title != "Catan" {
		t.Fatalf("got title %q", m.Game.Title)
	}
}

type errHTTP struct{}

func (errHTTP) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return nil, context.DeadlineExceeded
}
func (errHTTP) Head(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return nil, context.DeadlineExceeded
}

func TestRun_BggFailureDegradesToPartial(t *testing.T) {
	fc := clock.NewFake(fixedTime())
	cache := diskcache.New("/cache", diskcache.WithFilesystem(newMemFS()), diskcache.WithClock(fc))
	gov := governor.New(governor.WithClock(fc))
	bggClient := bgg.New(errHTTP{}, cache, gov, bgg.WithClock(fc))
	p := New(nil, bggClient, nil, fc)

	m, err := p.Run(context.Background(), Request{Title: "Catan", BggIDOrURL: "13"}, Options{})
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	if m.BGG == nil || m.BGG.Error == "" {
		t.Fatalf("expected BGG metadata to carry a degraded error, got %+v", m.BGG)
	}
}

var _ httpx.HttpClient = errHTTP{}
