package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeRelationInputs decodes a set-relations items array. Elements that
// fail to decode are reported per index and left out of the result.
func DecodeRelationInputs(raw json.RawMessage) ([]RelationInput, []ItemError, error) {
	return decodeItems(raw, func(i int, in *RelationInput) { in.Index = i })
}

// DecodeProductMapInputs decodes an upsert-product-map items array
func DecodeProductMapInputs(raw json.RawMessage) ([]ProductMapInput, []ItemError, error) {
	return decodeItems(raw, func(i int, in *ProductMapInput) { in.Index = i })
}

func decodeItems[T any](raw json.RawMessage, setIndex func(int, *T)) ([]T, []ItemError, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, ErrInvalidPayload
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	items := make([]T, 0, len(elements))
	errs := []ItemError{}
	for i, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			errs = append(errs, ItemError{Index: i, Message: fmt.Sprintf("invalid item: %v", err)})
			continue
		}
		setIndex(i, &item)
		items = append(items, item)
	}
	return items, errs, nil
}
