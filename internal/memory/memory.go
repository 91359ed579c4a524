// Package memory stores past question/answer exchanges so related
// follow-up questions can be grounded in what was already discussed.
// Writes are append-only; reads tolerate a slightly stale view.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Exchange is one stored question/answer pair.
type Exchange struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata,omitempty"`
	AskedAt  time.Time      `json:"askedAt"`
}

// Store is a SQLite-backed conversation memory.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the memory database at dbPath.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		metadata TEXT,
		asked_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_asked ON exchanges(asked_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveConversation records one exchange. Callers on the answer path run
// this in a goroutine; a failed write costs recall, never an answer.
func (s *Store) SaveConversation(question, answer string, metadata map[string]any) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}

	var meta []byte
	if len(metadata) > 0 {
		meta, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO exchanges (id, question, answer, metadata, asked_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), question, answer, string(meta), time.Now())
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// recallWindow bounds how many recent exchanges are scored for relevance.
const recallWindow = 200

// GetRelevantHistory returns up to k past exchanges scored by keyword
// overlap with query, most relevant first. An empty result is normal for
// fresh installs and unrelated questions.
func (s *Store) GetRelevantHistory(query string, k int) ([]Exchange, error) {
	if k <= 0 {
		return nil, nil
	}
	queryTerms := memoryTerms(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT id, question, answer, metadata, asked_at
		FROM exchanges
		ORDER BY asked_at DESC
		LIMIT ?
	`, recallWindow)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	type scored struct {
		ex    Exchange
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var ex Exchange
		var meta sql.NullString
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.Answer, &meta, &ex.AskedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &ex.Metadata); err != nil {
				s.log.Warn("bad exchange metadata", "id", ex.ID, "error", err)
			}
		}
		if sc := overlapScore(queryTerms, ex.Question+" "+ex.Answer); sc > 0 {
			candidates = append(candidates, scored{ex, sc})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Exchange, len(candidates))
	for i, c := range candidates {
		out[i] = c.ex
	}
	return out, nil
}

// Count returns the number of stored exchanges.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&n)
	return n, err
}

// Clear deletes all stored exchanges.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM exchanges`)
	return err
}

var memoryWordRe = regexp.MustCompile(`[a-z0-9][a-z0-9°]*`)

var memoryStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"my": true, "i": true, "it": true, "to": true, "of": true, "and": true,
	"or": true, "in": true, "on": true, "for": true, "what": true, "how": true,
	"why": true, "do": true, "does": true, "should": true, "can": true,
	"your": true, "you": true, "at": true, "with": true, "be": true,
}

func memoryTerms(s string) map[string]bool {
	terms := make(map[string]bool)
	for _, w := range memoryWordRe.FindAllString(strings.ToLower(s), -1) {
		if len(w) < 2 || memoryStopwords[w] {
			continue
		}
		terms[w] = true
	}
	return terms
}

func overlapScore(queryTerms map[string]bool, text string) float64 {
	var score float64
	for term := range memoryTerms(text) {
		if queryTerms[term] {
			score++
		}
	}
	return score
}
