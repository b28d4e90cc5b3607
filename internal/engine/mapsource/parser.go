package mapsource

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// place is one parsed feed item before enrichment.
type place struct {
	Name     string
	Category string
	Address  string
	Website  string
	Phone    string
	PlaceID  string
}

// snippet composes the preview text for an item the way a list card reads:
// name, category, address on separate lines, capped at 100 characters. Its
// first 20 characters back the fallback identity key.
func (p place) snippet() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Category, p.Address} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	s := strings.Join(parts, "\n")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// locationLink builds a shareable Maps URL from a Place ID.
func (p place) locationLink() string {
	if p.PlaceID == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id:" + p.PlaceID
}

// parseMapResponse parses a tbm=map JSON response. Returns the items and
// whether the feed may have more pages.
func parseMapResponse(body []byte) ([]place, bool) {
	// Strip anti-XSS prefix )]}'\n
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 && idx < 10 {
		body = body[idx+1:]
	}

	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}

	// Items live at root[0][1][1..N][14]
	items := safeSlice(safeGet(raw, 0, 1))
	if len(items) == 0 {
		return nil, false
	}

	var places []place
	// Skip index 0 (search metadata), iterate actual results
	for i := 1; i < len(items); i++ {
		item := safeSlice(safeGet(items, i, 14))
		if len(item) == 0 {
			continue
		}

		name := safeString(safeGet(item, 11))
		if name == "" {
			continue
		}

		places = append(places, place{
			Name:     name,
			Category: safeString(safeGet(item, 13, 0)),
			Address:  safeString(safeGet(item, 18)),
			Website:  safeString(safeGet(item, 7, 0)),
			Phone:    safeString(safeGet(item, 178, 0, 0)),
			PlaceID:  safeString(safeGet(item, 78)),
		})
	}

	hasMore := len(places) >= PageSize
	return places, hasMore
}

// safeGet navigates nested []any arrays by index path without panicking.
func safeGet(data any, path ...int) any {
	current := data
	for _, idx := range path {
		slice, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(slice) {
			return nil
		}
		current = slice[idx]
	}
	return current
}

// safeSlice converts any to []any, returns nil if not a slice.
func safeSlice(data any) []any {
	if data == nil {
		return nil
	}
	slice, ok := data.([]any)
	if !ok {
		return nil
	}
	return slice
}

// safeString extracts a string from any. Handles string and json.Number.
func safeString(data any) string {
	if data == nil {
		return ""
	}
	switch v := data.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
