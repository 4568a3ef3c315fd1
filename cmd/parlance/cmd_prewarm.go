package main

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/parlance/internal/app"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/spf13/cobra"
)

func prewarmCmd(g *globals) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "prewarm",
		Short: "Synthesize the fixed phrases to check the speech setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			var m domain.SpeechMode
			if mode != "" {
				if m, err = domain.ParseSpeechMode(mode); err != nil {
					return err
				}
			}
			cfg.Speech.Recognizer = "none"

			a, err := app.New(cmd.Context(), app.Options{
				Config: cfg,
				Dir:    dir,
				Logger: g.logger(),
				Out:    io.Discard,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			if m == "" {
				m = a.Engine.Snapshot().Mode
			}
			report := a.PrewarmMode(cmd.Context(), m)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synthesizer: %s\n", cfg.Speech.Synthesizer)
			fmt.Fprintf(out, "Requested:   %d\n", report.Requested)
			fmt.Fprintf(out, "Cached:      %d\n", report.Cached)
			fmt.Fprintf(out, "Skipped:     %d\n", report.Skipped)
			fmt.Fprintf(out, "Failed:      %d\n", report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d phrases failed to synthesize", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Speech mode whose phrases to synthesize (default: saved preference)")
	return cmd
}
