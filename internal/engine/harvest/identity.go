package harvest

import (
	"strings"

	"github.com/quackquavk/gridminer/internal/model"
)

// snippetKeyLen is how much of the raw snippet (usually address text) the
// fallback key uses. Enough to discriminate same-named businesses in
// different locations.
const snippetKeyLen = 20

// IdentityKey derives the dedup key for a record. Phone beats website beats
// snippet; phone and website values are trimmed but deliberately not
// normalized further, so "+1 555-1234" and "5551234" produce distinct keys.
func IdentityKey(r model.Record) string {
	name := strings.ToLower(strings.TrimSpace(r.Name))

	if phone := strings.TrimSpace(r.Phone); phone != "" {
		return name + "|" + phone
	}
	if website := strings.TrimSpace(r.Website); website != "" {
		return name + "|" + website
	}

	snippet := r.RawSnippet
	if len(snippet) > snippetKeyLen {
		snippet = snippet[:snippetKeyLen]
	}
	return name + "|" + strings.ToLower(strings.TrimSpace(snippet))
}

// Accumulator is the orchestrator-owned unique result set. First occurrence
// wins; insertion order is preserved so checkpoints are stable. Not safe for
// concurrent use: accumulation is serialized by design.
type Accumulator struct {
	seen    map[string]struct{}
	records []model.Record
}

func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Add inserts the record if its identity key is new, reporting whether it
// was kept.
func (a *Accumulator) Add(r model.Record) bool {
	key := IdentityKey(r)
	if _, dup := a.seen[key]; dup {
		return false
	}
	a.seen[key] = struct{}{}
	a.records = append(a.records, r)
	return true
}

func (a *Accumulator) Len() int { return len(a.records) }

// Records returns the accumulated set in insertion order. The slice is the
// accumulator's backing store; callers must not mutate it.
func (a *Accumulator) Records() []model.Record { return a.records }
