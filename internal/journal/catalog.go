package journal

import "time"

// Catalog is an immutable, ordered snapshot of fetched journals.
// Row position is the journal's identity within the snapshot.
type Catalog struct {
	journals  []Journal
	domains   []string
	fetchedAt time.Time
}

// NewCatalog copies journals into a new snapshot.
func NewCatalog(journals []Journal, fetchedAt time.Time) *Catalog {
	cp := make([]Journal, len(journals))
	copy(cp, journals)
	return &Catalog{
		journals:  cp,
		domains:   ExtractDomains(cp),
		fetchedAt: fetchedAt,
	}
}

// Len returns the number of journals.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.journals)
}

// At returns the journal at row i.
func (c *Catalog) At(i int) (Journal, bool) {
	if c == nil || i < 0 || i >= len(c.journals) {
		return Journal{}, false
	}
	return c.journals[i], true
}

// Journals returns the underlying rows. Callers must not modify the slice.
func (c *Catalog) Journals() []Journal {
	if c == nil {
		return nil
	}
	return c.journals
}

// Domains returns the catalog's sorted top-level domains.
func (c *Catalog) Domains() []string {
	if c == nil {
		return nil
	}
	return c.domains
}

// FetchedAt is when the snapshot was taken.
func (c *Catalog) FetchedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.fetchedAt
}

// Expired reports whether the snapshot is older than ttl. A zero ttl never expires.
func (c *Catalog) Expired(now time.Time, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.fetchedAt) > ttl
}
