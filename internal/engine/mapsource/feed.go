package mapsource

import (
	"context"
	"fmt"

	"github.com/quackquavk/gridminer/internal/engine/harvest"
	"github.com/quackquavk/gridminer/internal/model"
)

// Source is the HTTP-backed PageSource over the map search endpoint.
type Source struct {
	client   *Client
	enricher *Enricher
}

func NewSource(lang, proxyURL string) *Source {
	return &Source{
		client:   NewClient(lang, proxyURL),
		enricher: NewEnricher(),
	}
}

// OpenTile opens a feed anchored to the tile's viewport. The first page is
// fetched eagerly so an unreachable tile surfaces as an open failure.
func (s *Source) OpenTile(ctx context.Context, tile model.Tile, query string) (harvest.FeedHandle, error) {
	f := &feed{
		source: s,
		lat:    tile.Lat,
		lon:    tile.Lon,
		zoom:   tile.Zoom,
		query:  query,
	}
	if err := f.loadPage(ctx); err != nil {
		return nil, fmt.Errorf("loading tile %d,%d: %w", tile.Row, tile.Col, err)
	}
	return f, nil
}

// OpenQuery opens a feed for a plain query with no viewport anchor. The
// query text carries the location ("pizza in Kathmandu"), so a wide world
// viewport lets ranking follow the text.
func (s *Source) OpenQuery(ctx context.Context, query string) (harvest.FeedHandle, error) {
	f := &feed{
		source: s,
		zoom:   2,
		query:  query,
	}
	if err := f.loadPage(ctx); err != nil {
		return nil, fmt.Errorf("loading query %q: %w", query, err)
	}
	return f, nil
}

// feed pages through one query's results. Advance fetches the next page;
// once the surface stops returning full pages the count plateaus and the
// collector's stall detection ends the tile.
type feed struct {
	source *Source
	lat    float64
	lon    float64
	zoom   int
	query  string

	offset  int
	hasMore bool
	items   []place
}

func (f *feed) loadPage(ctx context.Context) error {
	body, err := f.source.client.SearchMap(ctx, f.lat, f.lon, f.zoom, f.query, f.offset)
	if err != nil {
		return err
	}
	page, hasMore := parseMapResponse(body)
	f.items = append(f.items, page...)
	f.hasMore = hasMore
	return nil
}

func (f *feed) Count(ctx context.Context) (int, error) {
	return len(f.items), nil
}

func (f *feed) Advance(ctx context.Context) error {
	if !f.hasMore {
		return nil
	}
	f.offset += PageSize
	return f.loadPage(ctx)
}

func (f *feed) Entries(ctx context.Context, limit int) ([]harvest.RawEntry, error) {
	n := len(f.items)
	if limit < n {
		n = limit
	}
	entries := make([]harvest.RawEntry, 0, n)
	for _, p := range f.items[:n] {
		entries = append(entries, &entry{place: p, enricher: f.source.enricher})
	}
	return entries, nil
}

func (f *feed) Close() error { return nil }

// entry wraps one parsed item with its enrichment hook.
type entry struct {
	place    place
	enricher *Enricher
}

func (e *entry) Preview() (string, string) {
	return e.place.Name, e.place.snippet()
}

// Extract builds the full record. The structured detail phone is preferred
// over a free-text guess; the website visit may supply an email and a
// secondary phone. Enrichment failures only leave fields empty.
func (e *entry) Extract(ctx context.Context) (model.Record, error) {
	p := e.place

	rec := model.Record{
		Name:         p.Name,
		Category:     p.Category,
		Address:      p.Address,
		Website:      p.Website,
		LocationLink: p.locationLink(),
		RawSnippet:   p.snippet(),
	}

	phone := p.Phone
	if phone == "" {
		phone = ExtractPhone(p.snippet())
	}

	if p.Website != "" {
		email, webPhone := e.enricher.FetchContacts(ctx, p.Website)
		rec.Email = email
		if phone == "" {
			phone = webPhone
		}
	}
	rec.Phone = phone

	if err := ctx.Err(); err != nil {
		return rec, err
	}
	return rec, nil
}
