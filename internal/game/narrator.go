package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-kids/internal/ai"
	"github.com/p-n-ai/pai-kids/internal/domain"
)

const defaultSpeechTimeout = 30 * time.Second

// Speech is a synthesized utterance ready for playback.
type Speech struct {
	RoundID string
	Text    string
	Audio   ai.Audio
}

// Narrator reads text aloud without blocking the game. Failures are logged
// and never reach the caller.
type Narrator struct {
	provider ai.ContentProvider
	enabled  bool
	timeout  time.Duration
	sink     func(Speech)
	wg       sync.WaitGroup
}

// NewNarrator creates a narrator. sink receives every successful utterance
// and may be nil.
func NewNarrator(provider ai.ContentProvider, enabled bool, sink func(Speech)) *Narrator {
	return &Narrator{
		provider: provider,
		enabled:  enabled,
		timeout:  defaultSpeechTimeout,
		sink:     sink,
	}
}

// Say synthesizes text in the voice for profile in the background.
func (n *Narrator) Say(roundID, text string, profile domain.Profile) {
	if n == nil || !n.enabled || text == "" {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		audio, err := n.provider.Synthesize(ctx, text, profile)
		if err != nil {
			var speechErr *ai.SpeechError
			if errors.As(err, &speechErr) {
				slog.Warn("speech unavailable", "round_id", roundID, "error", err)
			} else {
				slog.Error("speech failed", "round_id", roundID, "error", err)
			}
			return
		}
		if n.sink != nil {
			n.sink(Speech{RoundID: roundID, Text: text, Audio: audio})
		}
	}()
}

// Wait blocks until every pending utterance has finished.
func (n *Narrator) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
