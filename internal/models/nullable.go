package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NullableID accepts the id shapes the editor sends: a number, a numeric
// string, an empty string, false or null. Empty forms decode to no id.
type NullableID struct {
	Value int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (n *NullableID) UnmarshalJSON(data []byte) error {
	*n = NullableID{}
	data = bytes.TrimSpace(data)

	switch string(data) {
	case "null", `""`, "false", "0", `"0"`:
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	} else {
		raw = string(data)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid id %q", raw)
		}
		id = int64(f)
	}
	if id <= 0 {
		return nil
	}
	n.Value, n.Valid = id, true
	return nil
}

// MarshalJSON implements json.Marshaler
func (n NullableID) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(n.Value, 10)), nil
}

// Ptr returns the id as a pointer, nil when absent
func (n NullableID) Ptr() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// FlexBool accepts true/false, 1/0 and their string forms
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		*b = true
	default:
		*b = false
	}
	return nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
