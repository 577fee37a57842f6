// Package pdf pulls a manuscript's title and abstract out of a PDF.
package pdf

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages bounds how much of the document is read; abstracts sit up front.
const DefaultMaxPages = 2

// MaxAbstractRunes caps the extracted abstract.
const MaxAbstractRunes = 3000

// ErrNoText is returned when the PDF yields no extractable text (e.g. a scan).
var ErrNoText = errors.New("no extractable text in PDF")

// Manuscript is what could be recovered from the document. Fields may be empty.
type Manuscript struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	DOI      string `json:"doi,omitempty"`
}

// ExtractManuscript reads the first pages of the PDF at filePath.
func ExtractManuscript(filePath string) (*Manuscript, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	return manuscriptFrom(r)
}

// ExtractManuscriptReader is ExtractManuscript for uploaded content.
func ExtractManuscriptReader(ra io.ReaderAt, size int64) (*Manuscript, error) {
	r, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}
	return manuscriptFrom(r)
}

func manuscriptFrom(r *pdf.Reader) (*Manuscript, error) {
	text := pageText(r, DefaultMaxPages)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	return parseManuscript(text), nil
}

// pageText concatenates the plain text of the first maxPages pages.
// Pages that fail to decode are skipped.
func pageText(r *pdf.Reader, maxPages int) string {
	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String()
}

var (
	abstractHeading = regexp.MustCompile(`(?i)^\s*(abstract|summary)\b[\s.:—-]*`)
	sectionHeading  = regexp.MustCompile(`(?i)^\s*((\d+|[IVX]+)\.?\s+)?(keywords?|key\s+words|index\s+terms|introduction|author summary)\b`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// parseManuscript applies line heuristics to extracted text. The title is the
// first substantial non-header line before the abstract; the abstract runs from
// an "Abstract" heading to the next section heading.
func parseManuscript(text string) *Manuscript {
	lines := strings.Split(text, "\n")
	m := &Manuscript{DOI: findDOI(text)}

	abstractAt := -1
	for i, line := range lines {
		if abstractHeading.MatchString(line) {
			abstractAt = i
			break
		}
	}

	titleEnd := len(lines)
	if abstractAt >= 0 {
		titleEnd = abstractAt
	}
	for _, line := range lines[:titleEnd] {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			m.Title = collapse(line)
			break
		}
	}

	if abstractAt < 0 {
		return m
	}

	var parts []string
	if rest := abstractHeading.ReplaceAllString(lines[abstractAt], ""); strings.TrimSpace(rest) != "" {
		parts = append(parts, rest)
	}
	for _, line := range lines[abstractAt+1:] {
		if sectionHeading.MatchString(line) {
			break
		}
		if strings.TrimSpace(line) == "" && len(parts) > 0 {
			break
		}
		parts = append(parts, line)
	}
	m.Abstract = truncateRunes(collapse(strings.Join(parts, " ")), MaxAbstractRunes)
	return m
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"),
		strings.Contains(lower, "copyright"),
		strings.Contains(lower, "preprint"),
		strings.Contains(lower, "doi.org"),
		strings.Contains(lower, "volume") && strings.Contains(lower, "issue"),
		strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
