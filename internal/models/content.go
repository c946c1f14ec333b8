package models

import "time"

// Creation is an authored card (recipe, how-to, list)
type Creation struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	Title     string    `json:"title" db:"title"`
	Published bool      `json:"published" db:"published"`
	CreatedAt time.Time `json:"created" db:"created"`
	UpdatedAt time.Time `json:"modified" db:"modified"`
}

// Post is an internal site post that relations can point at
type Post struct {
	ID     int64  `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	URL    string `json:"url" db:"url"`
	Status string `json:"status" db:"status"`
}

// Attachment is a local media-library item
type Attachment struct {
	ID        int64     `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	SourceURL string    `json:"source_url,omitempty" db:"source_url"`
	CreatedAt time.Time `json:"created" db:"created"`
}

// SearchResult is one match of a content search
type SearchResult struct {
	ID          int64       `json:"id"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title"`
	Type        string      `json:"type,omitempty"`
	URL         string      `json:"url,omitempty"`
}
