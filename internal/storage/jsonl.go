package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/journalrec/internal/journal"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadJournals reads journals from a JSONL file, one record per line.
// A missing file yields an empty list. Records without a display name are dropped
// and counted.
func ReadJournals(path string) ([]journal.Journal, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("opening journals file: %w", err)
	}
	defer f.Close()

	var journals []journal.Journal
	dropped := 0
	scanner := bufio.NewScanner(f)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var j journal.Journal
		if err := json.Unmarshal(line, &j); err != nil {
			return nil, 0, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if j.Validate() != nil {
			dropped++
			continue
		}
		journals = append(journals, j)
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading journals file: %w", err)
	}

	return journals, dropped, nil
}

// WriteJournals writes journals to a JSONL file, replacing existing content.
func WriteJournals(path string, journals []journal.Journal) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating journals file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, j := range journals {
		data, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("encoding journal %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing journal %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing journals file: %w", err)
	}
	return f.Close()
}

// FindByISSN searches for a journal by linking ISSN.
func FindByISSN(journals []journal.Journal, issn string) (int, bool) {
	if issn == "" {
		return -1, false
	}
	for i, j := range journals {
		if j.ISSNL == issn {
			return i, true
		}
	}
	return -1, false
}
