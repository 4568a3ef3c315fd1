package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/parlance/internal/app"
	mcpserver "github.com/felixgeelhaar/parlance/internal/mcp"
	"github.com/spf13/cobra"
)

func mcpCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the quiz as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			// stdio carries the protocol, so nothing may be spoken or read there.
			cfg.Speech.Recognizer = "none"
			if cfg.Speech.Synthesizer == "text" {
				cfg.Speech.Synthesizer = "none"
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, app.Options{
				Config: cfg,
				Dir:    dir,
				Logger: g.logger(),
				Out:    io.Discard,
			})
			if err != nil {
				return err
			}
			defer a.Close()

			go a.Engine.Run(ctx)

			srv := mcpserver.NewServer(mcpserver.Config{Quiz: a.Engine, Version: Version})
			return srv.ServeStdio(ctx)
		},
	}
}
