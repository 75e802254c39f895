// Package bgg implements the BGG Metadata Client from spec §4.6: it fetches
// and normalizes BoardGameGeek XML API v2 "thing" responses, behind the
// same Governor/diskcache plumbing the HTML fetcher uses, degrading to a
// partial result on any failure rather than propagating an error.
//
// XML decoding uses stdlib encoding/xml: no third-party XML-to-struct
// library appears anywhere in the retrieval pack, and quay/claircore's
// rhel OVAL parser is itself built on encoding/xml, so this is the
// corpus-idiomatic choice rather than a silent fallback.
package bgg

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/tabletop-tutor/harvester/clock"
	"github.com/tabletop-tutor/harvester/diskcache"
	"github.com/tabletop-tutor/harvester/governor"
	"github.com/tabletop-tutor/harvester/httpx"
)

// ErrInvalidID is returned when the input is neither a bare numeric ID nor
// a URL containing one, mapping to spec §7's BGG_INVALID_ID.
var ErrInvalidID = errors.New("bgg: could not extract a numeric id")

// DefaultQPS and DefaultCacheTTL are the spec §4.6 defaults.
const (
	DefaultQPS       = 2.0
	DefaultCacheTTL  = 24 * time.Hour
	DefaultTimeout   = 5 * time.Second
	apiHost          = "boardgamegeek.com"
	thingEndpointFmt = "https://boardgamegeek.com/xmlapi2/thing?id=%s&stats=1"
)

var idFromURL = regexp.MustCompile(`/boardgame/(\d+)/`)
var bareID = regexp.MustCompile(`^\d+$`)

// LinkRef is one entry of a flattened link[type=X] group, per spec §4.6's
// normalization rules.
type LinkRef struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Metadata is spec §3's BggMetadata entity. Error is non-empty exactly when
// the fetch degraded to a partial result; in that case only ID and
// FetchedAt are otherwise guaranteed populated.
type Metadata struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Year        int       `json:"year,omitempty"`
	Players     string    `json:"players,omitempty"`
	PlayTime    string    `json:"playTime,omitempty"`
	Age         string    `json:"age,omitempty"`
	Categories  []LinkRef `json:"categories,omitempty"`
	Mechanics   []LinkRef `json:"mechanics,omitempty"`
	Designers   []LinkRef `json:"designers,omitempty"`
	Artists     []LinkRef `json:"artists,omitempty"`
	Publishers  []LinkRef `json:"publishers,omitempty"`
	Expansions  []LinkRef `json:"expansions,omitempty"`
	Families    []LinkRef `json:"families,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Error       string    `json:"error,omitempty"`
}

// ExtractID pulls a numeric BGG thing ID out of either a bare numeric
// string or a full BGG URL of the form ".../boardgame/NNNN/...", per spec
// §4.6.
func ExtractID(idOrURL string) (string, error) {
	if bareID.MatchString(idOrURL) {
		return idOrURL, nil
	}
	if m := idFromURL.FindStringSubmatch(idOrURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidID, idOrURL)
}

// Option configures a Client.
type Option func(*Client)

// WithQPS records a queries-per-second value on the Client. Fetch does not
// read it: request spacing comes from the Governor passed to New.
func WithQPS(qps float64) Option {
	return func(c *Client) { c.qps = qps }
}

func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithClock(cl clock.Clock) Option {
	return func(c *Client) { c.clock = cl }
}

// Client is the BGG Metadata Client contract.
type Client struct {
	http     httpx.HttpClient
	cache    *diskcache.Cache
	gov      *governor.Governor
	clock    clock.Clock
	qps      float64
	cacheTTL time.Duration
	timeout  time.Duration
}

// New returns a Client backed by the given HttpClient, disk cache and
// Governor. Requests to boardgamegeek.com are spaced by gov's gap for that
// host (its global gap unless gov was built with a host override); the
// Client's own qps setting does not change that spacing.
func New(client httpx.HttpClient, cache *diskcache.Cache, gov *governor.Governor, opts ...Option) *Client {
	c := &Client{
		http:     client,
		cache:    cache,
		gov:      gov,
		clock:    clock.System{},
		qps:      DefaultQPS,
		cacheTTL: DefaultCacheTTL,
		timeout:  DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch resolves idOrURL to a numeric BGG thing ID, fetches and normalizes
// its metadata, and never returns an error for network/status failures:
// those degrade to a Metadata value with Error set, per spec §4.6 and §7's
// BGG_PARTIAL. A malformed idOrURL is the one case that returns an error.
func (c *Client) Fetch(ctx context.Context, idOrURL string) (*Metadata, error) {
	id, err := ExtractID(idOrURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := fmt.Sprintf(thingEndpointFmt, id)

	if entry, ok := c.cache.Get(ctx, reqURL); ok {
		if c.cache.IsFresh(entry, c.clock.Now(), c.cacheTTL) {
			md, err := parseThing(entry.Body)
			if err == nil {
				md.ID = id
				md.FetchedAt = entry.FetchedAt
				return md, nil
			}
		}
	}

	if c.gov != nil {
		if err := c.gov.Acquire(ctx, apiHost); err != nil {
			return partial(id, err, c.clock.Now()), nil
		}
	}

	headers := httpx.StandardHeaders()
	resp, err := c.http.Get(ctx, reqURL, headers)
	if err != nil {
		return partial(id, err, c.clock.Now()), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return partial(id, err, c.clock.Now()), nil
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("BGG API request failed with status %d", resp.StatusCode)
		return partial(id, err, c.clock.Now()), nil
	}

	md, err := parseThing(body)
	if err != nil {
		return partial(id, err, c.clock.Now()), nil
	}

	now := c.clock.Now()
	md.ID = id
	md.FetchedAt = now
	_ = c.cache.Put(ctx, reqURL, &diskcache.Entry{
		Body:      body,
		Status:    resp.StatusCode,
		FetchedAt: now,
	})
	return md, nil
}

func partial(id string, cause error, now time.Time) *Metadata {
	return &Metadata{ID: id, Error: cause.Error(), FetchedAt: now}
}

// --- XML wire format ---

type xmlItems struct {
	XMLName xml.Name  `xml:"items"`
	Items   []xmlItem `xml:"item"`
}

type xmlItem struct {
	Names       []xmlName  `xml:"name"`
	YearPub     xmlValue   `xml:"yearpublished"`
	MinPlayers  xmlValue   `xml:"minplayers"`
	MaxPlayers  xmlValue   `xml:"maxplayers"`
	PlayingTime xmlValue   `xml:"playingtime"`
	MinAge      xmlValue   `xml:"minage"`
	Description string     `xml:"description"`
	Image       string     `xml:"image"`
	Thumbnail   string     `xml:"thumbnail"`
	Links       []xmlLink  `xml:"link"`
}

type xmlName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type xmlValue struct {
	Value string `xml:"value,attr"`
}

type xmlLink struct {
	Type  string `xml:"type,attr"`
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

func parseThing(body []byte) (*Metadata, error) {
	var doc xmlItems
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("bgg: response contained no item")
	}
	item := doc.Items[0]

	md := &Metadata{
		Title:       selectPrimaryName(item.Names),
		Year:        atoiOr(item.YearPub.Value, 0),
		Players:     playersRange(item.MinPlayers.Value, item.MaxPlayers.Value),
		PlayTime:    item.PlayingTime.Value,
		Age:         item.MinAge.Value,
		Description: item.Description,
		Image:       item.Image,
		Thumbnail:   item.Thumbnail,
	}

	for _, l := range item.Links {
		ref := LinkRef{ID: l.ID, Value: l.Value}
		switch l.Type {
		case "boardgamecategory":
			md.Categories = append(md.Categories, ref)
		case "boardgamemechanic":
			md.Mechanics = append(md.Mechanics, ref)
		case "boardgamedesigner":
			md.Designers = append(md.Designers, ref)
		case "boardgameartist":
			md.Artists = append(md.Artists, ref)
		case "boardgamepublisher":
			md.Publishers = append(md.Publishers, ref)
		case "boardgameexpansion":
			md.Expansions = append(md.Expansions, ref)
		case "boardgamefamily":
			md.Families = append(md.Families, ref)
		}
	}

	return md, nil
}

// selectPrimaryName returns the name with type="primary", or the first name
// as fallback, per spec §4.6.
func selectPrimaryName(names []xmlName) string {
	for _, n := range names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	if len(names) > 0 {
		return names[0].Value
	}
	return ""
}

func playersRange(min, max string) string {
	if min == "" && max == "" {
		return ""
	}
	if min == max || max == "" {
		return min
	}
	if min == "" {
		return max
	}
	return min + "-" + max
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
