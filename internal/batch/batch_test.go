package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/connections/internal/catalog"
	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/puzzle"
	"github.com/robalobadob/connections/internal/results"
)

func loadAll(t *testing.T) []*puzzle.Puzzle {
	t.Helper()
	c, err := catalog.Load("", puzzle.DefaultSeed)
	require.NoError(t, err)
	return c.All()
}

// oracle solves every puzzle without mistakes.
func oracle(_ int, p *puzzle.Puzzle) Player {
	var turns []string
	for _, g := range p.Groups {
		turns = append(turns, game.FormatGuess(g.Members))
	}
	return ScriptedPlayer(turns...)
}

func TestRun_Oracle(t *testing.T) {
	ps := loadAll(t)

	var mu sync.Mutex
	var sunk []results.Result
	rep, err := Run(context.Background(), ps, oracle, Options{
		Concurrency: 3,
		Sink: func(_ context.Context, r results.Result) error {
			mu.Lock()
			defer mu.Unlock()
			sunk = append(sunk, r)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Len(t, sunk, len(ps))
	require.Len(t, rep.Results, len(ps))
	for i, r := range rep.Results {
		assert.Equal(t, ps[i].ID, r.PuzzleID, "results are indexed by input order")
		assert.Equal(t, game.OutcomeWon, r.Outcome)
	}
	assert.Equal(t, len(ps), rep.Summary.Wins)
	assert.Equal(t, 1.0, rep.Summary.Mean.Reward)
	assert.Equal(t, 1.5, rep.Summary.Mean.AvgDifficultySolved)
}

func TestRun_RandomIsDeterministic(t *testing.T) {
	ps := loadAll(t)
	newPlayer := func(i int, _ *puzzle.Puzzle) Player { return RandomPlayer(int64(100 + i)) }

	a, err := Run(context.Background(), ps, newPlayer, Options{Concurrency: 6})
	require.NoError(t, err)
	b, err := Run(context.Background(), ps, newPlayer, Options{Concurrency: 1})
	require.NoError(t, err)

	for i := range a.Results {
		assert.Equal(t, a.Results[i].Metrics, b.Results[i].Metrics)
		assert.Equal(t, a.Results[i].Turns, b.Results[i].Turns)
		assert.LessOrEqual(t, a.Results[i].Turns, game.DefaultMaxTurns)
	}
	assert.Equal(t, a.Summary, b.Summary)
}

func TestPlay_HistoryAndTurnGuard(t *testing.T) {
	p := loadAll(t)[0]
	var seen Observation
	player := PlayerFunc(func(_ context.Context, obs Observation) (string, error) {
		seen = obs
		return "thinking out loud, no guess", nil
	})

	e, err := Play(context.Background(), p, player, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, e.State.Turns)
	assert.Equal(t, game.OutcomeContinue, e.State.Outcome, "turn guard stops without a verdict")
	require.Len(t, seen.History, 4)
	assert.Equal(t, "system", seen.History[0].Role)
	assert.Contains(t, seen.History[3].Content, "No <guess> tags found.")
}

func TestRun_PlayerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), loadAll(t), func(int, *puzzle.Puzzle) Player {
		return PlayerFunc(func(context.Context, Observation) (string, error) { return "", boom })
	}, Options{})
	assert.ErrorIs(t, err, boom)
}
