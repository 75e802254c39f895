package section

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // format registration for image.DecodeConfig
	_ "image/jpeg" // format registration for image.DecodeConfig
	_ "image/png"  // format registration for image.DecodeConfig
	"net/http"
	"strings"
)

// HTTPRemoteProbe returns a RemoteSizeProbe that fetches just enough of the
// image to decode its dimensions, used when Options.ProbeRemoteSize is set
// (spec §4.5 step 3, gated by UBG_PROBE_SIZE). If client is nil,
// http.DefaultClient is used.
func HTTPRemoteProbe(client *http.Client) RemoteSizeProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(rawURL string) (width, height int, ok bool) {
		w, h, err := probeDimensions(rawURL, client)
		if err != nil {
			return 0, 0, false
		}
		return w, h, true
	}
}

func probeDimensions(rawURL string, client *http.Client) (width, height int, err error) {
	switch {
	case strings.HasPrefix(rawURL, "http"):
	case strings.HasPrefix(rawURL, "//"):
		rawURL = "http:" + rawURL
	default:
		return 0, 0, errors.New("unsupported image url")
	}

	resp, err := client.Get(rawURL)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, 0, errors.New(resp.Status)
	}
	switch ct := strings.ToLower(resp.Header.Get("Content-Type")); {
	case strings.HasPrefix(ct, "image/jpeg"), strings.HasPrefix(ct, "image/png"), strings.HasPrefix(ct, "image/gif"):
	default:
		return 0, 0, fmt.Errorf("unsupported content-type %q", ct)
	}
	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
