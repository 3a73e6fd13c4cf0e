package sos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// flexInt decodes an integer sent either as a JSON number or a string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing id %q: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

// flexString decodes a string that the API sometimes sends as a number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// listing is the paginated envelope used by every /listado endpoint.
type listing[T any] struct {
	Items []T `json:"items"`
}

// decodeListing tolerates a non-object payload, treating it as no items.
func decodeListing[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}
	var l listing[T]
	if err := json.Unmarshal(trimmed, &l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return l.Items, nil
}
