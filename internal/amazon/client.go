package amazon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured is returned when affiliate credentials are missing
	ErrNotConfigured = errors.New("amazon: affiliate credentials not configured")
	// ErrNoProducts is returned when the scraper answers without product data
	ErrNoProducts = errors.New("amazon: no product data returned")
)

// Client fetches product metadata for ASINs
type Client interface {
	// IsConfigured reports whether scraping is enabled
	IsConfigured() bool
	// GetProductsByASIN returns metadata keyed by ASIN
	GetProductsByASIN(ctx context.Context, asins ...string) (map[string]models.ScrapedProduct, error)
}

// HTTPClient calls the external scraping API
type HTTPClient struct {
	cfg     config.AmazonConfig
	http    *http.Client
	limiter *rate.Limiter
	group   singleflight.Group
	log     zerolog.Logger
	now     func() time.Time
}

// NewHTTPClient creates a scraper client. Calls are rate limited to
// cfg.RequestsPerSecond and identical in-flight requests are shared.
func NewHTTPClient(cfg config.AmazonConfig, log zerolog.Logger) *HTTPClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = 24 * time.Hour
	}

	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log.With().Str("component", "amazon").Logger(),
		now:     time.Now,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.http = hc
	return c
}

// IsConfigured reports whether affiliate credentials are present
func (c *HTTPClient) IsConfigured() bool {
	return c.cfg.Configured()
}

type scrapeRequest struct {
	ASINs      []string `json:"asins"`
	PartnerTag string   `json:"partner_tag"`
}

type scrapeProduct struct {
	ASIN     string          `json:"asin"`
	Title    string          `json:"title"`
	ImageURL string          `json:"image_url"`
	Expires  int64           `json:"expires"`
	Raw      json.RawMessage `json:"-"`
}

type scrapeResponse struct {
	Products []json.RawMessage `json:"products"`
	Error    string            `json:"error"`
}

// GetProductsByASIN scrapes the given ASINs
func (c *HTTPClient) GetProductsByASIN(ctx context.Context, asins ...string) (map[string]models.ScrapedProduct, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	wanted := normalizeASINs(asins)
	if len(wanted) == 0 {
		return nil, fmt.Errorf("amazon: no valid ASINs requested")
	}

	key := strings.Join(wanted, ",")
	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, wanted)
	})
	if shared {
		c.log.Debug().Str("asins", key).Msg("Shared in-flight scrape result")
	}
	if err != nil {
		return nil, err
	}
	return v.(map[string]models.ScrapedProduct), nil
}

func (c *HTTPClient) fetch(ctx context.Context, asins []string) (map[string]models.ScrapedProduct, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("amazon: rate limiter: %w", err)
	}

	body, err := json.Marshal(scrapeRequest{ASINs: asins, PartnerTag: c.cfg.PartnerTag})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ScraperURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", c.cfg.AccessKey)
	req.Header.Set("X-Secret-Key", c.cfg.SecretKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amazon: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("amazon: read response: %w", err)
	}

	c.log.Debug().
		Strs("asins", asins).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Scrape request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("amazon: unexpected status %d", resp.StatusCode)
	}

	var decoded scrapeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("amazon: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("amazon: %s", decoded.Error)
	}

	products := make(map[string]models.ScrapedProduct, len(decoded.Products))
	for _, raw := range decoded.Products {
		var p scrapeProduct
		if err := json.Unmarshal(raw, &p); err != nil || !IsASIN(strings.ToUpper(p.ASIN)) {
			continue
		}
		asin := strings.ToUpper(p.ASIN)
		expires := c.now().Add(c.cfg.DefaultExpiry)
		if p.Expires > 0 {
			expires = time.Unix(p.Expires, 0)
		}
		products[asin] = models.ScrapedProduct{
			ASIN:                 asin,
			Title:                p.Title,
			ExternalThumbnailURL: p.ImageURL,
			Expires:              expires.UTC(),
			Raw:                  raw,
		}
	}
	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

func normalizeASINs(asins []string) []string {
	seen := make(map[string]bool, len(asins))
	out := make([]string, 0, len(asins))
	for _, a := range asins {
		a = strings.ToUpper(strings.TrimSpace(a))
		if !IsASIN(a) || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
