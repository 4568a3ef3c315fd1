package cache

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/parlance/internal/speech"
)

// SynthesizeFunc produces audio for one phrase.
type SynthesizeFunc func(ctx context.Context, text string) (speech.Audio, error)

// PrewarmReport summarizes a prewarm run.
type PrewarmReport struct {
	Requested int
	Cached    int
	Skipped   int
	Failed    int
}

// Prewarm synthesizes phrases that are not yet cached. A failure is logged
// and counted without stopping the remaining phrases; cancellation of ctx
// stops the run early. A nil logger uses slog.Default.
func (c *ResponseCache) Prewarm(ctx context.Context, phrases []string, synth SynthesizeFunc, logger *slog.Logger) PrewarmReport {
	if logger == nil {
		logger = slog.Default()
	}
	report := PrewarmReport{Requested: len(phrases)}

	for _, phrase := range phrases {
		if ctx.Err() != nil {
			report.Failed += report.Requested - report.Cached - report.Skipped - report.Failed
			break
		}
		if c.Contains(phrase) {
			report.Skipped++
			continue
		}

		audio, err := synth(ctx, phrase)
		if err != nil {
			logger.Warn("failed to prewarm phrase", "phrase", phrase, "error", err)
			report.Failed++
			continue
		}
		c.Put(phrase, audio)
		report.Cached++
	}

	logger.Debug("prewarm finished",
		"requested", report.Requested,
		"cached", report.Cached,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report
}
