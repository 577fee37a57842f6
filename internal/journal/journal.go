// Package journal defines the journal record schema and domain extraction.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// NotAvailable is displayed in place of missing publisher or ISSN values.
const NotAvailable = "N/A"

// TopLevel is the concept level of the broadest subject labels.
const TopLevel = 0

// ErrMissingName is returned by Validate for records without a display name.
var ErrMissingName = errors.New("journal has no display name")

// Concept is a subject label attached to a journal.
type Concept struct {
	Name  string `json:"display_name"`
	Level int    `json:"level"`
}

// Journal is a catalog record. Optional fields decode to their zero values.
type Journal struct {
	ID                   string    `json:"id"`
	DisplayName          string    `json:"display_name"`
	AbbreviatedTitle     string    `json:"abbreviated_title,omitempty"`
	Description          string    `json:"description,omitempty"`
	HostOrganizationName string    `json:"host_organization_name,omitempty"`
	ISSNL                string    `json:"issn_l,omitempty"`
	HomepageURL          string    `json:"homepage_url,omitempty"`
	Concepts             []Concept `json:"x_concepts,omitempty"`
}

// Validate checks that the record carries the fields the pipeline relies on.
func (j Journal) Validate() error {
	if j.DisplayName == "" {
		if j.ID != "" {
			return fmt.Errorf("%w: %s", ErrMissingName, j.ID)
		}
		return ErrMissingName
	}
	return nil
}

// Domains returns the names of the journal's top-level concepts in listed order.
func (j Journal) Domains() []string {
	var domains []string
	for _, c := range j.Concepts {
		if c.Level == TopLevel {
			domains = append(domains, c.Name)
		}
	}
	return domains
}

// Publisher returns the host organization, or N/A.
func (j Journal) Publisher() string {
	if j.HostOrganizationName == "" {
		return NotAvailable
	}
	return j.HostOrganizationName
}

// ISSN returns the linking ISSN, or N/A.
func (j Journal) ISSN() string {
	if j.ISSNL == "" {
		return NotAvailable
	}
	return j.ISSNL
}

// URL returns the homepage, falling back to the catalog id.
func (j Journal) URL() string {
	if j.HomepageURL != "" {
		return j.HomepageURL
	}
	return j.ID
}

// IndexText is the descriptive text embedded for the journal.
func (j Journal) IndexText() string {
	return fmt.Sprintf("%s — %s\nScope: %s", j.DisplayName, j.AbbreviatedTitle, j.Description)
}

// DecodeJournals parses a JSON array of catalog records.
// Records that fail validation are dropped and counted.
func DecodeJournals(data []byte) ([]Journal, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decoding journals: %w", err)
	}
	return DecodeRecords(raw)
}

// DecodeRecords parses individual raw records, dropping invalid ones.
func DecodeRecords(raw []json.RawMessage) ([]Journal, int, error) {
	journals := make([]Journal, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		var j Journal
		if err := json.Unmarshal(r, &j); err != nil {
			dropped++
			continue
		}
		if err := j.Validate(); err != nil {
			dropped++
			continue
		}
		journals = append(journals, j)
	}
	return journals, dropped, nil
}

// ExtractDomains returns the sorted, distinct top-level concept names
// across all journals.
func ExtractDomains(journals []Journal) []string {
	seen := make(map[string]struct{})
	for _, j := range journals {
		for _, c := range j.Concepts {
			if c.Level == TopLevel {
				seen[c.Name] = struct{}{}
			}
		}
	}

	domains := make([]string, 0, len(seen))
	for name := range seen {
		domains = append(domains, name)
	}
	sort.Strings(domains)
	return domains
}
