package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "parlanced.pid"

func main() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals holds flags shared by every command.
type globals struct {
	dir     string
	verbose bool
}

func NewRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "parlance",
		Short:         "Spoken vocabulary quiz",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dir, "dir", "", "Parlance home (default: $PARLANCE_HOME or ~/.parlance)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		playCmd(g),
		vocabCmd(g),
		configCmd(g),
		prewarmCmd(g),
		eventsCmd(g),
		mcpCmd(g),
		startCmd(g),
		stopCmd(g),
		statusCmd(g),
		logsCmd(g),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "parlance %s\n", Version)
			return nil
		},
	}
}

// home resolves the Parlance directory from the flag or environment.
func (g *globals) home() (string, error) {
	if g.dir != "" {
		return g.dir, nil
	}
	return config.ParlanceDir()
}

// load reads .env files and the layered config for dir.
func (g *globals) load() (string, *config.LocalConfig, error) {
	dir, err := g.home()
	if err != nil {
		return "", nil, err
	}
	if err := config.LoadDotEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		return "", nil, fmt.Errorf("load config: %w", err)
	}
	return dir, cfg, nil
}

// logger writes to stderr only when verbose; the quiz owns stdout.
func (g *globals) logger() *slog.Logger {
	if !g.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
