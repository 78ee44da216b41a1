// Package utils provides JSON helpers for working with loosely typed
// GraphQL and JSON-RPC payloads.
package utils

import (
	"encoding/json"
	"fmt"
)

// ParseJSONObject parses a raw JSON message into a map structure.
func ParseJSONObject(raw json.RawMessage) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON object: %v", err)
	}
	return data, nil
}

// ExtractString extracts a string value from a map.
func ExtractString(data map[string]interface{}, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}

// ExtractMap extracts a sub-map structure from a map.
func ExtractMap(data map[string]interface{}, key string) map[string]interface{} {
	if value, ok := data[key].(map[string]interface{}); ok {
		return value
	}
	return nil
}

// ExtractArray extracts an array structure from a map.
func ExtractArray(data map[string]interface{}, key string) []interface{} {
	if value, ok := data[key].([]interface{}); ok {
		return value
	}
	return nil
}

// ExtractStringSlice extracts an array of strings from a map, skipping
// entries of any other type.
func ExtractStringSlice(data map[string]interface{}, key string) []string {
	items := ExtractArray(data, key)
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
