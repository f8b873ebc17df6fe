// Package results persists finished episodes and aggregates their scores.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/puzzle"
)

// Result is one finished episode.
type Result struct {
	EpisodeID  string       `json:"episodeId"`
	PlayerID   string       `json:"playerId,omitempty"`
	PuzzleID   string       `json:"puzzleId"`
	PuzzleDate string       `json:"puzzleDate"`
	Split      puzzle.Split `json:"split"`
	Outcome    game.Outcome `json:"outcome"`
	Turns      int          `json:"turns"`
	Metrics    game.Metrics `json:"metrics"`
}

// FromEpisode captures the final state of e.
func FromEpisode(e *game.Episode, playerID string) Result {
	split := puzzle.SplitTrain
	if strings.HasPrefix(e.Puzzle.Date, puzzle.EvalYear) {
		split = puzzle.SplitEval
	}
	return Result{
		EpisodeID:  e.ID,
		PlayerID:   playerID,
		PuzzleID:   e.Puzzle.ID,
		PuzzleDate: e.Puzzle.Date,
		Split:      split,
		Outcome:    e.State.Outcome,
		Turns:      e.State.Turns,
		Metrics:    game.Score(e.State),
	}
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records a result; a second insert for the same episode is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	var player any
	if r.PlayerID != "" {
		player = r.PlayerID
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO results
            (episode_id, player_id, puzzle_id, puzzle_date, split, outcome,
             mistakes, groups_found, avg_difficulty, reward, turns)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EpisodeID, player, r.PuzzleID, r.PuzzleDate, string(r.Split), string(r.Outcome),
		int(r.Metrics.MistakesUsed), int(r.Metrics.GroupsFound), r.Metrics.AvgDifficultySolved,
		r.Metrics.Reward, r.Turns,
	)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.EpisodeID, err)
	}
	return nil
}

// Summary aggregates results for a split ("" = all) and optional player.
func (s *Store) Summary(ctx context.Context, split puzzle.Split, playerID string) (game.Summary, error) {
	q := `SELECT COUNT(1),
                 COALESCE(SUM(outcome = 'won'), 0),
                 COALESCE(AVG(reward), 0),
                 COALESCE(AVG(mistakes), 0),
                 COALESCE(AVG(groups_found), 0),
                 COALESCE(AVG(avg_difficulty), 0)
          FROM results WHERE 1=1`
	var args []any
	if split != "" {
		q += ` AND split=?`
		args = append(args, string(split))
	}
	if playerID != "" {
		q += ` AND player_id=?`
		args = append(args, playerID)
	}

	var out game.Summary
	err := s.db.QueryRowContext(ctx, q, args...).Scan(
		&out.Episodes, &out.Wins,
		&out.Mean.Reward, &out.Mean.MistakesUsed, &out.Mean.GroupsFound, &out.Mean.AvgDifficultySolved,
	)
	if err != nil {
		return game.Summary{}, fmt.Errorf("summarize results: %w", err)
	}
	return out, nil
}

// Recent lists a player's latest results, newest first.
func (s *Store) Recent(ctx context.Context, playerID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT episode_id, puzzle_id, puzzle_date, split, outcome, turns,
               mistakes, groups_found, avg_difficulty, reward
        FROM results WHERE player_id=?
        ORDER BY finished_at DESC, rowid DESC
        LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		r := Result{PlayerID: playerID}
		var split, outcome string
		var mistakes, groups int
		if err := rows.Scan(&r.EpisodeID, &r.PuzzleID, &r.PuzzleDate, &split, &outcome, &r.Turns,
			&mistakes, &groups, &r.Metrics.AvgDifficultySolved, &r.Metrics.Reward); err != nil {
			return nil, err
		}
		r.Split, r.Outcome = puzzle.Split(split), game.Outcome(outcome)
		r.Metrics.MistakesUsed, r.Metrics.GroupsFound = float64(mistakes), float64(groups)
		out = append(out, r)
	}
	return out, rows.Err()
}
