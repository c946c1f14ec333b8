package models

import "errors"

// ErrInvalidPayload is returned when a request body is structurally invalid
var ErrInvalidPayload = errors.New("items must be an array")

// ItemError reports a problem with one item of a batch without failing the batch
type ItemError struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}
