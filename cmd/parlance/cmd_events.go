package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/parlance/internal/queue"
	"github.com/spf13/cobra"
)

func eventsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with published session events",
	}
	cmd.AddCommand(eventsTailCmd(g))
	return cmd
}

func eventsTailCmd(g *globals) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print session events from the broker as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.Events.AMQPURL == "" {
				return errors.New("no broker configured (set events.amqp_url or PARLANCE_AMQP_URL)")
			}

			conn, err := queue.NewConnection(cfg.Events.AMQPURL, queue.ConnectionConfig{
				Queue:      cfg.Events.Queue,
				MessageTTL: cfg.Events.MessageTTL,
				Logger:     g.logger(),
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			consumer := queue.NewConsumer(conn, func(ctx context.Context, msg *queue.EventMessage) error {
				return printEvent(out, msg, raw)
			}, 10)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			defer consumer.Stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s (Ctrl+C to stop)\n", conn.Queue())
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "Print each message as JSON")
	return cmd
}

func printEvent(w io.Writer, msg *queue.EventMessage, raw bool) error {
	if raw {
		return json.NewEncoder(w).Encode(msg)
	}
	_, err := fmt.Fprintf(w, "%s  %-22s session=%s  %s\n",
		msg.OccurredAt.Local().Format(time.TimeOnly), msg.Type, msg.SessionID, msg.Payload)
	return err
}
