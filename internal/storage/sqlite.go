// Package storage keeps an optional SQLite snapshot of the fetched catalog.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/journalrec/internal/journal"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// ErrNoCatalog is returned when no snapshot has been saved.
var ErrNoCatalog = errors.New("no catalog snapshot stored")

// ErrCatalogExpired is returned when the stored snapshot is older than the allowed age.
var ErrCatalogExpired = errors.New("catalog snapshot expired")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	if path == "" {
		path = MemoryDSN
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes; also keeps :memory: on one connection

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Journals in catalog order; row is the position used by the index
		CREATE TABLE IF NOT EXISTS journals (
			row INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			abbreviated_title TEXT,
			description TEXT,
			host_organization_name TEXT,
			issn_l TEXT,
			homepage_url TEXT,
			concepts_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_journals_issn ON journals(issn_l) WHERE issn_l IS NOT NULL AND issn_l != '';

		-- Full-text search over names and scope descriptions
		CREATE VIRTUAL TABLE IF NOT EXISTS journals_fts USING fts5(
			row UNINDEXED,
			display_name,
			abbreviated_title,
			description
		);

		-- Snapshot metadata (fetched_at, fingerprint)
		CREATE TABLE IF NOT EXISTS catalog_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveCatalog replaces the stored snapshot with journals, in order.
func (d *DB) SaveCatalog(journals []journal.Journal, fetchedAt time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"journals", "journals_fts", "catalog_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO journals (
			row, id, display_name, abbreviated_title, description,
			host_organization_name, issn_l, homepage_url, concepts_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing journals insert: %w", err)
	}
	defer stmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO journals_fts (row, display_name, abbreviated_title, description)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i, j := range journals {
		conceptsJSON, err := json.Marshal(j.Concepts)
		if err != nil {
			return fmt.Errorf("marshaling concepts for %s: %w", j.ID, err)
		}
		_, err = stmt.Exec(i, j.ID, j.DisplayName,
			nullableString(j.AbbreviatedTitle), nullableString(j.Description),
			nullableString(j.HostOrganizationName), nullableString(j.ISSNL),
			nullableString(j.HomepageURL), string(conceptsJSON))
		if err != nil {
			return fmt.Errorf("inserting journal %s: %w", j.ID, err)
		}
		if _, err := ftsStmt.Exec(i, j.DisplayName, j.AbbreviatedTitle, j.Description); err != nil {
			return fmt.Errorf("inserting fts for %s: %w", j.ID, err)
		}
	}

	meta := map[string]string{
		"fetched_at":  fetchedAt.UTC().Format(time.RFC3339Nano),
		"fingerprint": journal.Fingerprint(journals),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO catalog_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("saving %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// LoadCatalog returns the stored snapshot in catalog order.
// A positive maxAge rejects snapshots older than that with ErrCatalogExpired.
func (d *DB) LoadCatalog(now time.Time, maxAge time.Duration) ([]journal.Journal, time.Time, error) {
	var raw string
	err := d.db.QueryRow(`SELECT value FROM catalog_meta WHERE key = 'fetched_at'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoCatalog
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing snapshot time: %w", err)
	}
	if maxAge > 0 && now.Sub(fetchedAt) > maxAge {
		return nil, fetchedAt, ErrCatalogExpired
	}

	rows, err := d.db.Query(`SELECT ` + selectJournalFields + ` FROM journals ORDER BY row`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying journals: %w", err)
	}
	defer rows.Close()

	journals, err := scanJournals(rows)
	if err != nil {
		return nil, time.Time{}, err
	}
	return journals, fetchedAt, nil
}

// Fingerprint returns the stored snapshot's fingerprint, or "" if none.
func (d *DB) Fingerprint() (string, error) {
	var fp string
	err := d.db.QueryRow(`SELECT value FROM catalog_meta WHERE key = 'fingerprint'`).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return fp, err
}

// SearchJournals runs a full-text query over names and descriptions.
func (d *DB) SearchJournals(query string, limit int) ([]journal.Journal, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectJournalFields+`
		FROM journals
		WHERE row IN (SELECT row FROM journals_fts WHERE journals_fts MATCH ?)
		ORDER BY row
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanJournals(rows)
}

// GetByISSN retrieves a journal by its linking ISSN.
func (d *DB) GetByISSN(issn string) (*journal.Journal, error) {
	rows, err := d.db.Query(`SELECT `+selectJournalFields+` FROM journals WHERE issn_l = ? ORDER BY row LIMIT 1`, issn)
	if err != nil {
		return nil, fmt.Errorf("querying issn: %w", err)
	}
	defer rows.Close()

	journals, err := scanJournals(rows)
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, nil
	}
	return &journals[0], nil
}

// Count returns the number of stored journals.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM journals`).Scan(&n)
	return n, err
}

const selectJournalFields = `id, display_name, abbreviated_title, description,
	host_organization_name, issn_l, homepage_url, concepts_json`

func scanJournals(rows *sql.Rows) ([]journal.Journal, error) {
	var journals []journal.Journal
	for rows.Next() {
		var j journal.Journal
		var abbr, desc, host, issn, home sql.NullString
		var conceptsJSON string
		if err := rows.Scan(&j.ID, &j.DisplayName, &abbr, &desc, &host, &issn, &home, &conceptsJSON); err != nil {
			return nil, fmt.Errorf("scanning journal: %w", err)
		}
		j.AbbreviatedTitle = abbr.String
		j.Description = desc.String
		j.HostOrganizationName = host.String
		j.ISSNL = issn.String
		j.HomepageURL = home.String
		if err := json.Unmarshal([]byte(conceptsJSON), &j.Concepts); err != nil {
			return nil, fmt.Errorf("unmarshaling concepts for %s: %w", j.ID, err)
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

// prepareFTSQuery quotes queries containing FTS5 syntax characters.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}
	return query
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
