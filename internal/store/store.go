// Package store persists what outlives a single run: the translation
// memory, the glossary and the per-segment pipeline traces. Backed by an
// embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/subtran/internal"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		final_text TEXT NOT NULL,
		adapter_used TEXT,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, source_lang, target_lang)
	);

	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	-- traces keeps the per-segment diagnostic record for post-run auditing
	CREATE TABLE IF NOT EXISTS traces (
		id TEXT PRIMARY KEY,
		segment_id TEXT NOT NULL,
		source_text TEXT NOT NULL,
		final_text TEXT NOT NULL,
		first_pass TEXT,
		first_pass_source TEXT,
		critic_score REAL,
		flags TEXT,
		elapsed_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_traces_segment ON traces(segment_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetCachedTranslation returns a remembered final translation for the exact
// (normalized) source text and language pair.
func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error) {
	var finalText string
	err := s.db.QueryRowContext(ctx,
		`SELECT final_text FROM translation_memory WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		normalizeText(sourceText), sourceLang, targetLang).Scan(&finalText)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), normalizeText(sourceText), sourceLang, targetLang)
	return finalText, true, err
}

// SaveToMemory records a finished translation for reuse in later runs.
func (s *Store) SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText, adapterUsed string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (id, source_text, source_lang, target_lang, final_text, adapter_used, usage_count, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		uuid.New().String(), normalizeText(sourceText), sourceLang, targetLang, finalText, adapterUsed, time.Now(), time.Now())
	return err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveTrace persists a pipeline trace row.
func (s *Store) SaveTrace(ctx context.Context, sourceText string, trace internal.PipelineTrace) error {
	var score sql.NullFloat64
	if trace.Critic != nil {
		score = sql.NullFloat64{Float64: trace.Critic.Score, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO traces (id, segment_id, source_text, final_text, first_pass, first_pass_source, critic_score, flags, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), trace.SegmentID, sourceText, trace.FinalText,
		trace.FirstPass, trace.FirstPassSource, score,
		strings.Join(trace.Flags, ","), trace.Elapsed.Milliseconds())
	return err
}

// Stats summarises what the store holds.
type Stats struct {
	MemoryEntries int
	MemoryUsage   int
	TraceCount    int
	FlaggedTraces int
}

// GetStats returns memory and trace counters.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM translation_memory`).
		Scan(&stats.MemoryEntries, &stats.MemoryUsage)
	if err != nil {
		return nil, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN flags != '' THEN 1 ELSE 0 END), 0) FROM traces`).
		Scan(&stats.TraceCount, &stats.FlaggedTraces)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// AddGlossaryTerm inserts or replaces a glossary entry.
func (s *Store) AddGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm, targetTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (id, source_lang, target_lang, source_term, target_term)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sourceLang, targetLang, sourceTerm, targetTerm)
	return err
}

// GetGlossaryEntries returns all glossary entries for a language pair in
// insertion order.
func (s *Store) GetGlossaryEntries(ctx context.Context, sourceLang, targetLang string) ([]internal.GlossaryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE source_lang = ? AND target_lang = ? ORDER BY created_at`,
		sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []internal.GlossaryEntry
	for rows.Next() {
		var e internal.GlossaryEntry
		if err := rows.Scan(&e.SourceTerm, &e.TargetTerm); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes one glossary entry.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, sourceLang, targetLang, sourceTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM glossary WHERE source_lang = ? AND target_lang = ? AND source_term = ?`,
		sourceLang, targetLang, sourceTerm)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization for
// consistent memory key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
