package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/felixgeelhaar/parlance/internal/app"
	"github.com/felixgeelhaar/parlance/internal/config"
	"github.com/felixgeelhaar/parlance/internal/conversation"
	"github.com/felixgeelhaar/parlance/internal/domain"
	"github.com/spf13/cobra"
)

func playCmd(g *globals) *cobra.Command {
	var level, mode string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz session in the terminal",
		Long: `Play a quiz session in the terminal.

In full and concise mode prompts are spoken (or printed with 🔊 when no
synthesizer is configured) and each typed line stands in for speech.
In silent mode type the word, or the number of an option.

Type /help for commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, g, domain.Level(level), domain.SpeechMode(mode))
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "CEFR level: A1, A2, B1, B2 or any")
	cmd.Flags().StringVar(&mode, "mode", "", "Speech mode: full, concise or silent")
	return cmd
}

func runPlay(cmd *cobra.Command, g *globals, level domain.Level, mode domain.SpeechMode) error {
	dir, cfg, err := g.load()
	if err != nil {
		return err
	}
	if err := config.EnsureDir(dir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	// Typed lines stand in for speech, so the terminal owns stdin.
	cfg.Speech.Recognizer = "remote"

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, app.Options{
		Config:    cfg,
		Dir:       dir,
		Logger:    g.logger(),
		Out:       out,
		Presenter: &terminal{out: out},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Session.Prewarm {
		a.Prewarm(ctx)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- a.Engine.Run(ctx) }()

	c := &console{quiz: a.Engine, speech: a.Remote, out: out}
	if err := a.Engine.StartSession(ctx, level, mode); err != nil {
		cancel()
		<-runErr
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return <-runErr
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				cancel()
				return <-runErr
			}
			if quit := c.handle(ctx, line); quit {
				printSummary(out, a.Engine.Snapshot())
				cancel()
				return <-runErr
			}
		}
	}
}

// quiz is the subset of the engine the console drives.
type quiz interface {
	Snapshot() conversation.Snapshot
	StartSession(ctx context.Context, level domain.Level, mode domain.SpeechMode) error
	ChangeLevel(ctx context.Context, level domain.Level) error
	ChangeSpeechMode(ctx context.Context, mode domain.SpeechMode) error
	SubmitManualAnswer(ctx context.Context, text string) error
	SubmitChoice(ctx context.Context, option string) error
	RequestNext(ctx context.Context) error
	RequestHome(ctx context.Context) error
}

// transcripts receives typed lines while the engine is listening.
type transcripts interface {
	Listening() bool
	Deliver(text string) error
}

// console maps typed lines to engine actions.
type console struct {
	quiz   quiz
	speech transcripts
	out    io.Writer
}

// handle processes one line and reports whether the user asked to quit.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "/") {
		return c.slash(ctx, line)
	}

	snap := c.quiz.Snapshot()
	var err error
	switch snap.State {
	case domain.StateSetup:
		if strings.EqualFold(line, "start") {
			err = c.quiz.StartSession(ctx, "", "")
		} else {
			fmt.Fprintln(c.out, `Type "start" to begin or /quit to leave.`)
		}

	case domain.StateAwaitingAnswer:
		if option, ok := optionByNumber(snap.Challenge, line); ok {
			err = c.quiz.SubmitChoice(ctx, option)
		} else if c.listening() {
			err = c.speech.Deliver(line)
		} else {
			err = c.quiz.SubmitManualAnswer(ctx, line)
		}

	case domain.StateAwaitingCommand:
		if c.listening() {
			err = c.speech.Deliver(line)
			break
		}
		switch typedCommand(line) {
		case conversation.CommandNext:
			err = c.quiz.RequestNext(ctx)
		case conversation.CommandHome:
			err = c.quiz.RequestHome(ctx)
		default:
			fmt.Fprintln(c.out, `Type "next" or "home".`)
		}

	default:
		fmt.Fprintln(c.out, "One moment...")
	}

	c.report(err)
	return false
}

func (c *console) slash(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true
	case "help":
		fmt.Fprint(c.out, consoleHelp)
	case "mode":
		err = c.quiz.ChangeSpeechMode(ctx, domain.SpeechMode(arg))
	case "level":
		err = c.quiz.ChangeLevel(ctx, domain.Level(arg))
	case "home":
		err = c.quiz.RequestHome(ctx)
	case "next":
		err = c.quiz.RequestNext(ctx)
	case "status":
		printStatus(c.out, c.quiz.Snapshot())
	default:
		fmt.Fprintf(c.out, "Unknown command /%s. Type /help.\n", name)
	}
	c.report(err)
	return false
}

func (c *console) listening() bool {
	return c.speech != nil && c.speech.Listening()
}

func (c *console) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidAction):
		fmt.Fprintf(c.out, "Not now: %v\n", err)
	default:
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

const consoleHelp = `Commands:
  /mode full|concise|silent   change speech mode
  /level A1|A2|B1|B2|any      change level (before starting)
  /next                       next word
  /home                       end the session
  /status                     show the score
  /quit                       leave
`

// optionByNumber maps "1".."4" to the displayed option.
func optionByNumber(c *domain.Challenge, line string) (string, bool) {
	if c == nil {
		return "", false
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(c.Options) {
		return "", false
	}
	return c.Options[n-1], true
}

// typedCommand accepts the spoken phrases plus short forms.
func typedCommand(line string) conversation.Command {
	switch strings.ToLower(line) {
	case "n", "next":
		return conversation.CommandNext
	case "h", "home":
		return conversation.CommandHome
	}
	return conversation.ParseCommand(line)
}

// terminal renders engine displays as plain text.
type terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func (t *terminal) Show(d conversation.Display) {
	t.mu.Lock()
	defer t.mu.Unlock()

	voiced := d.Snapshot.Mode.Voiced()
	switch d.Kind {
	case conversation.DisplayChallenge:
		c := d.Snapshot.Challenge
		if c == nil {
			return
		}
		fmt.Fprintf(t.out, "\n%s\n", c.ClueText)
		for i, o := range c.Options {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, o)
		}
	case conversation.DisplayFeedback:
		if !voiced {
			fmt.Fprintln(t.out, d.Text)
		}
	case conversation.DisplayHint:
		fmt.Fprintf(t.out, "› %s\n", d.Text)
	case conversation.DisplayNotice:
		fmt.Fprintln(t.out, d.Text)
	}
}

func printStatus(w io.Writer, s conversation.Snapshot) {
	fmt.Fprintf(w, "State: %s  Level: %s  Mode: %s\n", s.State, s.Level, s.Mode)
	fmt.Fprintf(w, "Score: %d/%d  Streak: %d  Best: %d\n",
		s.Stats.CorrectAnswers, s.Stats.TotalAttempted, s.Stats.CurrentStreak, s.Stats.BestStreak)
}

func printSummary(w io.Writer, s conversation.Snapshot) {
	if s.Stats.TotalAttempted == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d of %d correct. Best streak: %d.\n",
		s.Stats.CorrectAnswers, s.Stats.TotalAttempted, s.Stats.BestStreak)
}
