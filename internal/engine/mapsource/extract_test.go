package mapsource

import "testing"

func TestExtractEmailPrefersGenericMailbox(t *testing.T) {
	text := "Reach john.doe@cafeluna.com or info@cafeluna.com for bookings"
	if got := ExtractEmail(text); got != "info@cafeluna.com" {
		t.Errorf("got %q, want the generic mailbox", got)
	}
}

func TestExtractEmailFiltersBlockedDomains(t *testing.T) {
	text := "errors to a1b2c3@sentry.wixpress.com, humans to hello@cafeluna.com"
	if got := ExtractEmail(text); got != "hello@cafeluna.com" {
		t.Errorf("got %q, tracker address not filtered", got)
	}
}

func TestExtractEmailFiltersAssetNames(t *testing.T) {
	text := `<img src="logo@2x.png"> write to office@cafeluna.com`
	if got := ExtractEmail(text); got != "office@cafeluna.com" {
		t.Errorf("got %q, asset filename not filtered", got)
	}
}

func TestExtractEmailShorterWinsWithinTier(t *testing.T) {
	text := "contact-form-submissions@cafeluna.com contact@cafeluna.com"
	if got := ExtractEmail(text); got != "contact@cafeluna.com" {
		t.Errorf("got %q, want the shorter candidate", got)
	}
}

func TestExtractEmailNoneSurvives(t *testing.T) {
	if got := ExtractEmail("see header@2x.png or test@example.com"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := ExtractEmail(""); got != "" {
		t.Errorf("got %q for empty input", got)
	}
}

func TestExtractPhone(t *testing.T) {
	if got := ExtractPhone("Call us at 01-4412345 today"); got != "01-4412345" {
		t.Errorf("got %q", got)
	}
	if got := ExtractPhone("order #123 45 confirmed"); got != "" {
		t.Errorf("got %q, want empty for a 5-digit fragment", got)
	}
	if got := ExtractPhone("no digits here"); got != "" {
		t.Errorf("got %q for digit-free input", got)
	}
}
