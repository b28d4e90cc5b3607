package mapsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// maxEnrichBody caps how much of a business website we read while hunting
// for contact details.
const maxEnrichBody = 2 << 20

// Enricher visits a record's external website looking for an email and an
// extra phone number. Every fetch is best-effort: failures leave the fields
// empty, and the caller's context bounds all requests so an item timeout
// tears down in-flight visits.
type Enricher struct {
	http *http.Client
}

func NewEnricher() *Enricher {
	return &Enricher{
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchContacts loads the website's landing page and, when no email turns up
// there, follows one contact-looking link before giving up.
func (e *Enricher) FetchContacts(ctx context.Context, website string) (email, phone string) {
	body, err := e.fetch(ctx, website)
	if err != nil {
		return "", ""
	}

	content := string(body)
	email = ExtractEmail(content)
	phone = ExtractPhone(content)
	if email != "" {
		return email, phone
	}

	contactURL := findContactLink(body, website)
	if contactURL == "" {
		return email, phone
	}

	body, err = e.fetch(ctx, contactURL)
	if err != nil {
		return email, phone
	}
	content = string(body)
	email = ExtractEmail(content)
	if phone == "" {
		phone = ExtractPhone(content)
	}
	return email, phone
}

func (e *Enricher) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[0])

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnrichBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// findContactLink returns the first link whose href mentions "contact",
// resolved against the page URL.
func findContactLink(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	var contact string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || !strings.Contains(strings.ToLower(href), "contact") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		contact = base.ResolveReference(ref).String()
		return false
	})
	return contact
}
