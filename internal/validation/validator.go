package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/creations-api/internal/models"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Validator checks editor-submitted relation and product items
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRelation validates one incoming relation item
func (v *Validator) ValidateRelation(item *models.RelationInput) []ValidationError {
	var errors []ValidationError

	// Validate content type
	if item.ContentType == "" {
		errors = append(errors, ValidationError{Field: "content_type", Message: "content_type is required"})
	} else if !models.ValidContentTypes[item.ContentType] {
		errors = append(errors, ValidationError{
			Field:   "content_type",
			Message: "invalid content_type, must be one of: card, post, external, revision",
			Value:   string(item.ContentType),
		})
	}

	// External links need a URL, internal links need a target
	if item.ContentType.IsExternal() {
		if strings.TrimSpace(item.URL) == "" {
			errors = append(errors, ValidationError{Field: "url", Message: "url is required for external relations"})
		} else if !isValidURL(item.URL) {
			errors = append(errors, ValidationError{Field: "url", Message: "invalid URL", Value: item.URL})
		}
	} else if item.ContentType != "" && !item.RelationID.Valid {
		errors = append(errors, ValidationError{Field: "relation_id", Message: "relation_id is required for internal relations"})
	}

	// Validate position
	if item.Position != nil && *item.Position < 0 {
		errors = append(errors, ValidationError{Field: "position", Message: "position must not be negative", Value: fmt.Sprint(*item.Position)})
	}

	// Validate thumbnail_uri format if present
	if item.ThumbnailURI != "" && !isValidURL(item.ThumbnailURI) {
		errors = append(errors, ValidationError{Field: "thumbnail_uri", Message: "invalid URL", Value: item.ThumbnailURI})
	}

	return errors
}

// ValidateProduct validates one incoming product map item
func (v *Validator) ValidateProduct(item *models.ProductMapInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(item.Link) == "" && !item.ProductID.Valid {
		errors = append(errors, ValidationError{Field: "link", Message: "link or product_id is required"})
	} else if item.Link != "" && !isValidURL(item.Link) {
		errors = append(errors, ValidationError{Field: "link", Message: "invalid URL", Value: item.Link})
	}

	if item.Position != nil && *item.Position < 0 {
		errors = append(errors, ValidationError{Field: "position", Message: "position must not be negative", Value: fmt.Sprint(*item.Position)})
	}

	if item.RemoteThumbnailURI != "" && !isValidURL(item.RemoteThumbnailURI) {
		errors = append(errors, ValidationError{Field: "remote_thumbnail_uri", Message: "invalid URL", Value: item.RemoteThumbnailURI})
	}

	return errors
}

// ToItemErrors converts validation errors for item index into batch errors
func ToItemErrors(index int, errs []ValidationError) []models.ItemError {
	out := make([]models.ItemError, 0, len(errs))
	for _, e := range errs {
		out = append(out, models.ItemError{Index: index, Field: e.Field, Message: e.Message, Value: e.Value})
	}
	return out
}

func isValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
