package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
)

// listShape describes where a list endpoint may put its records. The backend has
// returned bare arrays as well as arrays wrapped under different keys; the shape is
// resolved here once so callers always get a plain slice.
type listShape struct {
	keys []string
	// nested keys are looked up inside an object found under "data".
	nested []string
}

var (
	historyShape    = listShape{keys: []string{"matches", "history", "results", "data"}, nested: []string{"matches", "history", "results"}}
	tournamentShape = listShape{keys: []string{"tournaments", "items"}}
)

// extractList decodes the first array found at the shape's locations into out.
// A body with no array anywhere leaves out empty.
func extractList[T any](res *apiclient.Response, shape listShape) ([]T, error) {
	if !res.IsJSON() {
		return []T{}, nil
	}
	raw := bytes.TrimSpace(res.Raw())

	if arr, ok := asArray(raw); ok {
		return decodeList[T](arr)
	}

	obj, ok := asObject(raw)
	if !ok {
		return []T{}, nil
	}
	for _, key := range shape.keys {
		if arr, ok := asArray(obj[key]); ok {
			return decodeList[T](arr)
		}
	}
	if data, ok := asObject(obj["data"]); ok {
		for _, key := range shape.nested {
			if arr, ok := asArray(data[key]); ok {
				return decodeList[T](arr)
			}
		}
	}
	return []T{}, nil
}

func asArray(raw json.RawMessage) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	return raw, true
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return out, nil
}
