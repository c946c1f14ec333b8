package models

import (
	"encoding/json"
	"time"
)

// ContentType is the kind of target a relation points at
type ContentType string

const (
	ContentTypeCard     ContentType = "card"
	ContentTypePost     ContentType = "post"
	ContentTypeExternal ContentType = "external"
	ContentTypeRevision ContentType = "revision"
)

// ValidContentTypes defines allowed relation content types
var ValidContentTypes = map[ContentType]bool{
	ContentTypeCard:     true,
	ContentTypePost:     true,
	ContentTypeExternal: true,
	ContentTypeRevision: true,
}

// IsExternal reports whether relations of this kind are identified by URL
func (c ContentType) IsExternal() bool {
	return c == ContentTypeExternal
}

// Relation is one list item or related-content link attached to a creation
type Relation struct {
	ID                   int64           `json:"id" db:"id"`
	CreationID           int64           `json:"creation" db:"creation"`
	Type                 string          `json:"type" db:"type"`
	ContentType          ContentType     `json:"content_type" db:"content_type"`
	RelationID           *int64          `json:"relation_id" db:"relation_id"`
	URL                  string          `json:"url" db:"url"`
	ASIN                 *string         `json:"asin" db:"asin"`
	Meta                 json.RawMessage `json:"meta,omitempty" db:"meta"`
	Expires              *time.Time      `json:"expires" db:"expires"`
	Position             *int            `json:"position" db:"position"`
	ThumbnailID          *int64          `json:"thumbnail_id" db:"thumbnail_id"`
	ThumbnailURI         string          `json:"thumbnail_uri,omitempty" db:"thumbnail_uri"`
	ExternalThumbnailURL string          `json:"external_thumbnail_url,omitempty" db:"external_thumbnail_url"`
	Title                string          `json:"title" db:"title"`
	Description          string          `json:"description" db:"description"`
	Nofollow             bool            `json:"nofollow" db:"nofollow"`
	LinkText             string          `json:"link_text" db:"link_text"`
	CreatedAt            time.Time       `json:"created" db:"created"`
	UpdatedAt            time.Time       `json:"modified" db:"modified"`
}

// IdentityKey returns the dedup key of a stored relation: the URL for
// external links and the target id for everything else. ok is false when
// the relation carries neither.
func (r *Relation) IdentityKey() (string, bool) {
	if r.ContentType.IsExternal() {
		return "url:" + r.URL, r.URL != ""
	}
	if r.RelationID == nil {
		return "", false
	}
	return "id:" + itoa(*r.RelationID), true
}

// RelationInput is one item of a set-relations request as sent by the editor
type RelationInput struct {
	Index        int         `json:"-"`
	ID           NullableID  `json:"id"`
	ContentType  ContentType `json:"content_type"`
	RelationID   NullableID  `json:"relation_id"`
	URL          string      `json:"url"`
	Position     *int        `json:"position"`
	ThumbnailID  NullableID  `json:"thumbnail_id"`
	ThumbnailURI string      `json:"thumbnail_uri"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Nofollow     FlexBool    `json:"nofollow"`
	LinkText     string      `json:"link_text"`
}

// SetRelationsRequest is the body of a set-relations call
type SetRelationsRequest struct {
	Type  string          `json:"type"`
	Items json.RawMessage `json:"items"`
}

// RelationsResult is returned by a set-relations call
type RelationsResult struct {
	Items  []*Relation `json:"items"`
	Errors []ItemError `json:"errors"`
}
