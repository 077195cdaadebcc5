package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// storedCookie is what survives a restart. The jar hands back only name and value,
// so that is all there is to keep.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func encodeCookies(cookies []*http.Cookie) ([]byte, error) {
	out := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cookies: %w", err)
	}
	return data, nil
}

func decodeCookies(data []byte) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}
