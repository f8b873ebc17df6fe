// internal/batch/batch.go
//
// Batch evaluation: play many independent episodes concurrently.
// Responsibilities:
//   - Drive each episode turn by turn against a Player.
//   - Bound concurrency with errgroup.SetLimit.
//   - Collect per-episode results by index and summarize them.
//
// Episodes share nothing; each goroutine owns its Episode for its lifetime.

package batch

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/puzzle"
	"github.com/robalobadob/connections/internal/results"
)

// Message is one entry of an episode's conversation.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Observation is what a Player sees before producing a turn.
type Observation struct {
	History        []Message
	RemainingWords []string
}

// Player produces the free-text content of the next turn.
type Player interface {
	Respond(ctx context.Context, obs Observation) (string, error)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, obs Observation) (string, error)

func (f PlayerFunc) Respond(ctx context.Context, obs Observation) (string, error) { return f(ctx, obs) }

// Options configures Run.
type Options struct {
	Concurrency int // <= 0 means 4
	MaxTurns    int // <= 0 means game.DefaultMaxTurns
	// Sink, when set, receives every finished result (e.g. results.Store.Insert).
	Sink func(ctx context.Context, r results.Result) error
}

// Report is the outcome of a batch run.
type Report struct {
	Results []results.Result `json:"results"`
	Summary game.Summary     `json:"summary"`
}

// Run plays one episode per puzzle. newPlayer is called once per episode so
// players never share state across episodes.
func Run(ctx context.Context, puzzles []*puzzle.Puzzle, newPlayer func(i int, p *puzzle.Puzzle) Player, opts Options) (*Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = game.DefaultMaxTurns
	}

	out := make([]results.Result, len(puzzles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, p := range puzzles {
		i, p := i, p
		g.Go(func() error {
			e, err := Play(gctx, p, newPlayer(i, p), opts.MaxTurns)
			if err != nil {
				return fmt.Errorf("puzzle %s: %w", p.ID, err)
			}
			out[i] = results.FromEpisode(e, "")
			if opts.Sink != nil {
				if err := opts.Sink(gctx, out[i]); err != nil {
					return fmt.Errorf("sink %s: %w", e.ID, err)
				}
			}
			log.Debug().Str("puzzle", p.ID).Str("outcome", string(e.State.Outcome)).
				Int("mistakes", e.State.Mistakes).Int("found", len(e.State.FoundGroups)).Msg("episode finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ms := make([]game.Metrics, len(out))
	won := make([]bool, len(out))
	for i, r := range out {
		ms[i] = r.Metrics
		won[i] = r.Outcome == game.OutcomeWon
	}
	return &Report{Results: out, Summary: game.Summarize(ms, won)}, nil
}

// Play runs a single episode to completion.
func Play(ctx context.Context, p *puzzle.Puzzle, player Player, maxTurns int) (*game.Episode, error) {
	e := game.New(p, maxTurns)
	history := []Message{
		{Role: "system", Content: game.SystemPrompt},
		{Role: "user", Content: e.Question()},
	}
	for !e.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := player.Respond(ctx, Observation{
			History:        history,
			RemainingWords: append([]string(nil), e.State.RemainingWords...),
		})
		if err != nil {
			return nil, err
		}
		turn, err := e.ApplyGuess(content)
		if err != nil {
			return nil, err
		}
		history = append(history,
			Message{Role: "assistant", Content: content},
			Message{Role: "user", Content: turn.Message},
		)
	}
	return e, nil
}

// RandomPlayer is a baseline that guesses four random remaining words.
func RandomPlayer(seed int64) Player {
	rng := rand.New(rand.NewSource(seed))
	return PlayerFunc(func(_ context.Context, obs Observation) (string, error) {
		words := obs.RemainingWords
		rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
		if len(words) > puzzle.GroupSize {
			words = words[:puzzle.GroupSize]
		}
		return game.FormatGuess(words), nil
	})
}

// ScriptedPlayer replays fixed turn contents, then repeats the last one.
func ScriptedPlayer(turns ...string) Player {
	i := 0
	return PlayerFunc(func(context.Context, Observation) (string, error) {
		if len(turns) == 0 {
			return "", nil
		}
		t := turns[min(i, len(turns)-1)]
		i++
		return t, nil
	})
}
