// Package cache is a durable response cache: a SQLite table mapping the
// SHA-256 of an ordered transcript to the reply it produced. It never
// stores transcripts themselves, so a fresh session always starts from
// its seed; identical requests just skip the network.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rj-price/gemini-api/internal/session"
)

// Key derives the cache key for an ordered sequence of turns. Role and
// text both feed the hash, so user and model turns with equal text hash
// differently.
func Key(turns []session.Turn) string {
	h := sha256.New()
	for _, t := range turns {
		h.Write([]byte(t.Role))
		h.Write([]byte{0})
		h.Write([]byte(t.Text))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Store is a SQLite-backed response cache.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	createResponsesTable := `
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		response TEXT,
		created_at DATETIME
	);`

	if _, err := db.Exec(createResponsesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create responses table: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Get looks up the cached reply for the given transcript.
func (s *Store) Get(turns []session.Turn) (string, bool) {
	key := Key(turns)

	var response string
	err := s.db.QueryRow("SELECT response FROM responses WHERE key = ?", key).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("cache lookup failed", "key", key[:16], "error", err)
		return "", false
	}

	s.logger.Info("cache hit", "key", key[:16])
	return response, true
}

// Put stores the reply produced by the given transcript.
func (s *Store) Put(turns []session.Turn, response string) error {
	key := Key(turns)

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO responses (key, response, created_at) VALUES (?, ?, ?)",
		key, response, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache response: %w", err)
	}

	s.logger.Info("cached response", "key", key[:16])
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
