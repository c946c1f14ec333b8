package models

import (
	"encoding/json"
	"time"
)

// ScrapedProduct is the metadata returned by the Amazon scraper for one ASIN.
// It is only valid until Expires.
type ScrapedProduct struct {
	ASIN                 string          `json:"asin"`
	Title                string          `json:"title,omitempty"`
	ExternalThumbnailURL string          `json:"external_thumbnail_url,omitempty"`
	Expires              time.Time       `json:"expires"`
	Raw                  json.RawMessage `json:"raw,omitempty"`
}

// Meta returns the JSON payload stored in a row's meta column
func (p *ScrapedProduct) Meta() json.RawMessage {
	b, _ := json.Marshal(p)
	return b
}

// ParseScrapeMeta decodes a stored meta payload. ok is false for empty or
// malformed payloads.
func ParseScrapeMeta(meta json.RawMessage) (*ScrapedProduct, bool) {
	if len(meta) == 0 {
		return nil, false
	}
	var p ScrapedProduct
	if err := json.Unmarshal(meta, &p); err != nil {
		return nil, false
	}
	return &p, true
}
