package mapsource

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:(?:\+|00)\d{1,3}[-.\s]?)?(?:\(?\d{2,5}\)?[-.\s]?)?\d{3}[-.\s]?\d{3,4}`)
)

// Domains that show up in page source without being real contact addresses
// (error trackers, template placeholders).
var blockedEmailDomains = []string{
	"sentry.wixpress.com",
	"sentry.io",
	"sentry-next.wixpress.com",
	"example.com",
	"domain.com",
	"wixpress.com",
	"email.com",
	"yourdomain.com",
}

// Asset filenames like image@2x.png match the email pattern.
var blockedEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// Generic mailbox prefixes are preferred over personal addresses.
var priorityEmailPrefixes = []string{"info", "contact", "hello", "office", "support", "mail"}

// ExtractEmail pulls the best contact email candidate from free text, or ""
// when none survives filtering.
func ExtractEmail(text string) string {
	if text == "" {
		return ""
	}

	seen := make(map[string]struct{})
	var valid []string
	for _, match := range emailPattern.FindAllString(text, -1) {
		email := strings.ToLower(match)
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		if hasBlockedSuffix(email) {
			continue
		}
		domain := email[strings.LastIndex(email, "@")+1:]
		if isBlockedDomain(domain) {
			continue
		}
		valid = append(valid, email)
	}

	if len(valid) == 0 {
		return ""
	}

	// Generic mailboxes first, then shorter addresses: long matches are
	// often concatenated page text.
	sort.SliceStable(valid, func(i, j int) bool {
		pi, pj := hasPriorityPrefix(valid[i]), hasPriorityPrefix(valid[j])
		if pi != pj {
			return pi
		}
		return len(valid[i]) < len(valid[j])
	})

	return valid[0]
}

// ExtractPhone pulls the first plausible phone number from free text, or ""
// when nothing passes the 6-15 digit sanity check.
func ExtractPhone(text string) string {
	if text == "" {
		return ""
	}

	for _, match := range phonePattern.FindAllString(text, -1) {
		raw := strings.TrimSpace(match)
		digits := 0
		for _, c := range raw {
			if c >= '0' && c <= '9' {
				digits++
			}
		}
		if digits >= 6 && digits <= 15 {
			return raw
		}
	}
	return ""
}

func hasBlockedSuffix(email string) bool {
	for _, ext := range blockedEmailSuffixes {
		if strings.HasSuffix(email, ext) {
			return true
		}
	}
	return false
}

func isBlockedDomain(domain string) bool {
	for _, blocked := range blockedEmailDomains {
		if strings.Contains(domain, blocked) {
			return true
		}
	}
	return false
}

func hasPriorityPrefix(email string) bool {
	for _, p := range priorityEmailPrefixes {
		if strings.Contains(email, p) {
			return true
		}
	}
	return false
}
