package vault

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache persists per-file scan results keyed by path and mtime, so a
// rescan only re-reads notes that changed.
type Cache struct {
	db *sql.DB
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS notes (
	path   TEXT PRIMARY KEY,
	mtime  INTEGER NOT NULL,
	size   INTEGER NOT NULL,
	front  BLOB,
	body   BLOB,
	links  TEXT NOT NULL,
	embeds TEXT NOT NULL,
	tags   TEXT NOT NULL
);
`

// cachedNote is one cache row: everything scanning a note produces,
// minus the parsed front matter which is cheap to rebuild.
type cachedNote struct {
	Front  []byte
	Body   []byte
	Links  []string
	Embeds []string
	Tags   []string
}

// OpenCache opens (or creates) a scan cache database.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Lookup returns the cached scan for a note if its mtime and size
// still match.
func (c *Cache) Lookup(path string, mtime, size int64) (*cachedNote, bool) {
	row := c.db.QueryRow(
		`SELECT front, body, links, embeds, tags FROM notes WHERE path = ? AND mtime = ? AND size = ?`,
		path, mtime, size)

	var note cachedNote
	var links, embeds, tags string
	if err := row.Scan(&note.Front, &note.Body, &links, &embeds, &tags); err != nil {
		return nil, false
	}
	if json.Unmarshal([]byte(links), &note.Links) != nil ||
		json.Unmarshal([]byte(embeds), &note.Embeds) != nil ||
		json.Unmarshal([]byte(tags), &note.Tags) != nil {
		return nil, false
	}
	return &note, true
}

// Store saves one note's scan, replacing any stale row.
func (c *Cache) Store(path string, mtime, size int64, note *cachedNote) error {
	links, err := json.Marshal(note.Links)
	if err != nil {
		return err
	}
	embeds, err := json.Marshal(note.Embeds)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(note.Tags)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO notes (path, mtime, size, front, body, links, embeds, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		path, mtime, size, note.Front, note.Body, string(links), string(embeds), string(tags))
	return err
}

// Prune drops cache rows for notes that no longer exist.
func (c *Cache) Prune(existing map[string]bool) error {
	rows, err := c.db.Query(`SELECT path FROM notes`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return err
		}
		if !existing[path] {
			stale = append(stale, path)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, path := range stale {
		if _, err := c.db.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
			return err
		}
	}
	return nil
}
