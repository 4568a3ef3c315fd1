package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/felixgeelhaar/parlance/internal/app"
	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/felixgeelhaar/parlance/internal/storage/sqlite"
	"github.com/felixgeelhaar/parlance/internal/vocabulary"
	"github.com/spf13/cobra"
)

func vocabCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Inspect and manage vocabulary",
	}
	cmd.AddCommand(vocabListCmd(g), vocabImportCmd(g), vocabDeleteCmd(g))
	return cmd
}

func vocabListCmd(g *globals) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vocabulary entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.LevelAny
			if level != "" {
				parsed, err := domain.ParseLevel(level)
				if err != nil {
					return err
				}
				filter = parsed
			}

			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			store, closeFn, err := openVocabulary(cmd.Context(), dir, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := store.ByLevel(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORD\tLEVEL\tPOS\tDEFINITION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.SurfaceForm, e.Level, e.PartOfSpeech, e.Definition)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d entries (%s)\n", len(entries), cfg.Vocabulary.Backend)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Only show one level")
	return cmd
}

func vocabImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML pack into the SQLite vocabulary store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			pack, err := vocabulary.NewLoader("").LoadFile(args[0])
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), dir, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := sqlite.NewVocabularyStore(db).Import(cmd.Context(), pack)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s: %d new, %d updated\n", res.Pack, res.Inserted, res.Updated)
			if cfg.Vocabulary.Backend != "sqlite" {
				fmt.Fprintln(cmd.OutOrStdout(), `  Set vocabulary.backend to "sqlite" to quiz from the database.`)
			}
			return nil
		},
	}
}

func vocabDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <word>",
		Short: "Remove a word from the SQLite vocabulary store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), dir, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.NewVocabularyStore(db).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
			return nil
		},
	}
}

func openDB(ctx context.Context, dir string, cfg *config.LocalConfig) (*sqlite.DB, error) {
	paths := config.ResolvePaths(dir, cfg)
	if err := config.EnsureDir(dir); err != nil {
		return nil, err
	}
	db, err := sqlite.Open(ctx, paths.SQLite)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openVocabulary opens the configured backend without seeding it.
func openVocabulary(ctx context.Context, dir string, cfg *config.LocalConfig) (vocabulary.Store, func() error, error) {
	if cfg.Vocabulary.Backend == "sqlite" {
		db, err := openDB(ctx, dir, cfg)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewVocabularyStore(db), db.Close, nil
	}
	store, err := app.LoadMemoryVocabulary(config.ResolvePaths(dir, cfg).Packs)
	if err != nil {
		return nil, nil, err
	}
	return store, func() error { return nil }, nil
}
