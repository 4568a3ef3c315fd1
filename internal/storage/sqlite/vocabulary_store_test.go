package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/vocabulary"
)

func testPack() *vocabulary.Pack {
	return &vocabulary.Pack{
		ID:   "test",
		Name: "Test pack",
		Entries: []domain.VocabularyEntry{
			{SurfaceForm: "apple", Level: domain.LevelA1, Definition: "a round fruit", PartOfSpeech: "noun"},
			{SurfaceForm: "journey", Level: domain.LevelA2, Definition: "a long trip", PartOfSpeech: "noun"},
			{SurfaceForm: "resilient", Level: domain.LevelB2, Definition: "able to recover quickly", PartOfSpeech: "adjective"},
		},
	}
}

func TestVocabularyStore_ImportAndQuery(t *testing.T) {
	store := NewVocabularyStore(openTestDB(t))
	ctx := context.Background()

	result, err := store.Import(ctx, testPack())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Inserted != 3 || result.Updated != 0 {
		t.Errorf("Import() = %+v, want 3 inserted", result)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("All() returned %d entries, want 3", len(all))
	}

	a1, err := store.ByLevel(ctx, domain.LevelA1)
	if err != nil {
		t.Fatalf("ByLevel() error = %v", err)
	}
	if len(a1) != 1 || a1[0].SurfaceForm != "apple" || a1[0].Definition != "a round fruit" {
		t.Errorf("ByLevel(A1) = %+v", a1)
	}

	every, err := store.ByLevel(ctx, domain.LevelAny)
	if err != nil {
		t.Fatalf("ByLevel(any) error = %v", err)
	}
	if len(every) != 3 {
		t.Errorf("ByLevel(any) returned %d entries, want 3", len(every))
	}
}

func TestVocabularyStore_ReimportUpdates(t *testing.T) {
	store := NewVocabularyStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Import(ctx, testPack()); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	changed := testPack()
	changed.Entries = changed.Entries[:1]
	changed.Entries[0].SurfaceForm = "Apple"
	changed.Entries[0].Definition = "a crisp fruit"

	result, err := store.Import(ctx, changed)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if result.Inserted != 0 || result.Updated != 1 {
		t.Errorf("second Import() = %+v, want 1 updated", result)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	a1, _ := store.ByLevel(ctx, domain.LevelA1)
	if len(a1) != 1 || a1[0].SurfaceForm != "Apple" || a1[0].Definition != "a crisp fruit" {
		t.Errorf("ByLevel(A1) after update = %+v", a1)
	}
}

func TestVocabularyStore_InvalidPackIsRejected(t *testing.T) {
	store := NewVocabularyStore(openTestDB(t))
	ctx := context.Background()

	bad := testPack()
	bad.Entries = append(bad.Entries, domain.VocabularyEntry{SurfaceForm: "ghost", Level: "C2", Definition: "x"})

	if _, err := store.Import(ctx, bad); !errors.Is(err, domain.ErrInvalidEntry) {
		t.Fatalf("Import() error = %v, want invalid entry", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after rejected import, want 0", n)
	}
}

func TestVocabularyStore_Delete(t *testing.T) {
	store := NewVocabularyStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Import(ctx, testPack()); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if err := store.Delete(ctx, "JOURNEY"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "journey"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("second Delete() error = %v, want ErrEntryNotFound", err)
	}
}
