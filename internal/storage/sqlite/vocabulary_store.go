package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/vocabulary"
)

var _ vocabulary.Store = (*VocabularyStore)(nil)

// VocabularyStore implements vocabulary.Store backed by SQLite.
type VocabularyStore struct {
	db *DB
}

// NewVocabularyStore creates a new SQLite-backed vocabulary store.
func NewVocabularyStore(db *DB) *VocabularyStore {
	return &VocabularyStore{db: db}
}

// ImportResult reports how an import changed the store.
type ImportResult struct {
	Pack     string
	Inserted int
	Updated  int
}

// Import upserts a pack's entries in one transaction. Entries are keyed by
// lower-cased surface form, so re-importing a pack is idempotent.
func (s *VocabularyStore) Import(ctx context.Context, pack *vocabulary.Pack) (ImportResult, error) {
	result := ImportResult{Pack: pack.ID}

	for i, e := range pack.Entries {
		if err := e.Validate(); err != nil {
			return result, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, e := range pack.Entries {
		key := strings.ToLower(strings.TrimSpace(e.SurfaceForm))

		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM vocabulary_entries WHERE word_key = ?`, key).Scan(&exists)
		if err != nil {
			return result, fmt.Errorf("check entry %q: %w", e.SurfaceForm, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vocabulary_entries (word_key, surface_form, level, definition,
				example_sentence, part_of_speech, pack)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(word_key) DO UPDATE SET
				surface_form=excluded.surface_form, level=excluded.level,
				definition=excluded.definition, example_sentence=excluded.example_sentence,
				part_of_speech=excluded.part_of_speech, pack=excluded.pack,
				updated_at=datetime('now')`,
			key, e.SurfaceForm, string(e.Level), e.Definition,
			e.ExampleSentence, e.PartOfSpeech, pack.ID,
		)
		if err != nil {
			return result, fmt.Errorf("upsert entry %q: %w", e.SurfaceForm, err)
		}
		if exists > 0 {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vocabulary_imports (pack, entry_count) VALUES (?, ?)`,
		pack.ID, len(pack.Entries),
	); err != nil {
		return result, fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit import: %w", err)
	}
	return result, nil
}

func (s *VocabularyStore) All(ctx context.Context) ([]domain.VocabularyEntry, error) {
	return s.query(ctx, `
		SELECT surface_form, level, definition, example_sentence, part_of_speech
		FROM vocabulary_entries ORDER BY level, word_key`)
}

func (s *VocabularyStore) ByLevel(ctx context.Context, level domain.Level) ([]domain.VocabularyEntry, error) {
	if !level.IsConcrete() {
		return s.All(ctx)
	}
	return s.query(ctx, `
		SELECT surface_form, level, definition, example_sentence, part_of_speech
		FROM vocabulary_entries WHERE level = ? ORDER BY word_key`, string(level))
}

// Count returns the number of stored entries.
func (s *VocabularyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM vocabulary_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Delete removes one entry by surface form.
func (s *VocabularyStore) Delete(ctx context.Context, word string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vocabulary_entries WHERE word_key = ?`,
		strings.ToLower(strings.TrimSpace(word)))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *VocabularyStore) query(ctx context.Context, q string, args ...any) ([]domain.VocabularyEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.VocabularyEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.VocabularyEntry, error) {
	var e domain.VocabularyEntry
	var level string
	if err := rows.Scan(&e.SurfaceForm, &level, &e.Definition, &e.ExampleSentence, &e.PartOfSpeech); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	e.Level = domain.Level(level)
	return e, nil
}
