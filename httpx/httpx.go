// Package httpx provides the HttpClient leaf dependency: GET/HEAD with
// headers, timeouts and cancellation, gated by a pluggable policy hook.
// Remote-URL safety policy (SSRF allowlisting) is explicitly out of scope
// for this module (see spec §1); PolicyFunc is only the seam other code is
// expected to fill in.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tabletop-tutor/harvester/internal/useragent"
)

// ErrPolicyDisallowed is returned when PolicyFunc rejects a URL. Callers map
// this to the FETCH_POLICY_DISALLOWED error kind from spec §7.
var ErrPolicyDisallowed = errors.New("httpx: url rejected by policy")

// PolicyFunc decides whether url may be fetched. A nil PolicyFunc allows
// everything.
type PolicyFunc func(u *url.URL) bool

// HttpClient is the contract the HTML fetcher, BGG client and image-size
// probe depend on.
type HttpClient interface {
	Get(ctx context.Context, url string, headers http.Header) (*http.Response, error)
	Head(ctx context.Context, url string, headers http.Header) (*http.Response, error)
}

// Client is the production HttpClient.
type Client struct {
	httpClient *http.Client
	policy     PolicyFunc
	rotator    *useragent.Rotator
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithPolicy installs the URL policy hook.
func WithPolicy(p PolicyFunc) Option {
	return func(c *Client) { c.policy = p }
}

// WithUserAgents configures the rotating User-Agent pool.
func WithUserAgents(pool []string) Option {
	return func(c *Client) {
		c.rotator = useragent.NewRotator(pool)
		if t, ok := c.httpClient.Transport.(*http.Transport); ok {
			c.httpClient.Transport = useragent.Set(t, c.rotator)
		}
	}
}

// New returns a Client configured with opts. Defaults to a 10s timeout and
// a three-entry User-Agent rotation.
func New(opts ...Option) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
	for _, o := range opts {
		o(c)
	}
	if c.rotator == nil {
		WithUserAgents(nil)(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers http.Header) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: parse url: %w", err)
	}
	if c.policy != nil && !c.policy(u) {
		return nil, ErrPolicyDisallowed
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.httpClient.Do(req)
}

func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, headers)
}

func (c *Client) Head(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, url, headers)
}

// StandardHeaders returns the Accept/Accept-Language/Accept-Encoding/
// Upgrade-Insecure-Requests header set the HTML fetcher attaches to every
// request, per spec §4.3's header policy.
func StandardHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}
