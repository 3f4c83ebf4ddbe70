package ikman

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chanakanakandala/ikman-lk-housing-data/config"
	"github.com/chanakanakandala/ikman-lk-housing-data/models"
)

// adBasePath is where canonical ad URLs live, keyed by the ad's slug.
const adBasePath = "/en/ad/"

// Client fetches serp pages from the ikman.lk data API.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a ready-to-use serp client.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeout) * time.Second,
		},
	}
}

// PageURL builds the serp request URL for one location/page pair. The
// filter_json portion is carried pre-escaped in config, so it is appended
// verbatim rather than run through url.Values.
func (c *Client) PageURL(loc models.Location, page int) string {
	return c.cfg.APIBaseURL + "/data/serp" +
		"?top_ads=2&spotlights=5&sort=date&order=desc&buy_now=0&urgent=0" +
		"&categorySlug=" + c.cfg.CategorySlug +
		"&locationSlug=" + loc.Slug +
		"&category=" + strconv.Itoa(c.cfg.CategoryID) +
		"&location=" + strconv.Itoa(loc.ID) +
		"&page=" + strconv.Itoa(page) +
		"&filter_json=" + c.cfg.FilterJSON
}

// AdURL returns the canonical public URL for an ad slug.
func (c *Client) AdURL(slug string) string {
	return c.cfg.APIBaseURL + adBasePath + slug
}

// FetchPage retrieves and decodes one serp page. A non-2xx status or an
// unreachable host is returned as an error; the caller decides how much of
// the location's pagination to abandon.
func (c *Client) FetchPage(ctx context.Context, loc models.Location, page int) (*models.SerpPage, error) {
	url := c.PageURL(loc, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ikman: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ikman: fetch %s page %d: %w", loc.Slug, page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ikman: fetch %s page %d: status %d", loc.Slug, page, resp.StatusCode)
	}

	var serp models.SerpPage
	if err := json.NewDecoder(resp.Body).Decode(&serp); err != nil {
		return nil, fmt.Errorf("ikman: decode %s page %d: %w", loc.Slug, page, err)
	}
	return &serp, nil
}
