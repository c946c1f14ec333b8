package models

import (
	"encoding/json"
	"time"
)

// Product is a shared product row, reused across creations by ASIN or link
type Product struct {
	ID                   int64           `json:"id" db:"id"`
	ASIN                 *string         `json:"asin" db:"asin"`
	Link                 string          `json:"link" db:"link"`
	Title                string          `json:"title" db:"title"`
	ThumbnailID          *int64          `json:"thumbnail_id" db:"thumbnail_id"`
	RemoteThumbnailURI   string          `json:"remote_thumbnail_uri,omitempty" db:"remote_thumbnail_uri"`
	ExternalThumbnailURL string          `json:"external_thumbnail_url,omitempty" db:"external_thumbnail_url"`
	Meta                 json.RawMessage `json:"meta,omitempty" db:"meta"`
	Expires              *time.Time      `json:"expires" db:"expires"`
	CreatedAt            time.Time       `json:"created" db:"created"`
	UpdatedAt            time.Time       `json:"modified" db:"modified"`
}

// ProductMap links a creation to a recommended product
type ProductMap struct {
	ID          int64     `json:"id" db:"id"`
	CreationID  int64     `json:"creation" db:"creation"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	Title       string    `json:"title" db:"title"`
	Link        string    `json:"link" db:"link"`
	ThumbnailID *int64    `json:"thumbnail_id" db:"thumbnail_id"`
	Position    *int      `json:"position" db:"position"`
	CreatedAt   time.Time `json:"created" db:"created"`

	// Populated from the products table on read
	Product *Product `json:"product,omitempty" db:"-"`
}

// ProductMapInput is one item of an upsert-product-map request
type ProductMapInput struct {
	Index              int        `json:"-"`
	ID                 NullableID `json:"id"`
	ProductID          NullableID `json:"product_id"`
	Title              string     `json:"title"`
	Link               string     `json:"link"`
	ThumbnailID        NullableID `json:"thumbnail_id"`
	RemoteThumbnailURI string     `json:"remote_thumbnail_uri"`
	Position           *int       `json:"position"`
}

// UpsertProductMapRequest is the body of an upsert-product-map call
type UpsertProductMapRequest struct {
	Items json.RawMessage `json:"items"`
}

// ProductMapResult is returned by an upsert-product-map call
type ProductMapResult struct {
	Items  []*ProductMap `json:"items"`
	Errors []ItemError   `json:"errors"`
}
