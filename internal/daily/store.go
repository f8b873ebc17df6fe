package daily

import (
	"context"
	"database/sql"
)

type Result struct {
	PlayerID    string `json:"playerId"`
	Date        string `json:"date"`
	PuzzleID    string `json:"puzzleId"`
	Won         bool   `json:"won"`
	Mistakes    int    `json:"mistakes"`
	GroupsFound int    `json:"groupsFound"`
	ElapsedMs   int    `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE player_id=? AND date=?",
		playerID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult keeps the first play of the day; repeats are ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, date, puzzle_id, won, mistakes, groups_found, elapsed_ms)
         VALUES(?,?,?,?,?,?,?)`,
		r.PlayerID, r.Date, r.PuzzleID, r.Won, r.Mistakes, r.GroupsFound, r.ElapsedMs,
	)
	return err
}

// Claim moves an anonymous player's daily results to an account. Days the
// account already has a result for keep the account's row.
func (s *Store) Claim(ctx context.Context, anonID, playerID string) error {
	if anonID == "" || playerID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET player_id=? WHERE player_id=?`, playerID, anonID)
	return err
}

type LBRow struct {
	PlayerID    string `json:"playerId"`
	Won         bool   `json:"won"`
	GroupsFound int    `json:"groupsFound"`
	Mistakes    int    `json:"mistakes"`
	ElapsedMs   int    `json:"elapsedMs"`
}

// Leaderboard ranks wins first, then groups found, fewer mistakes, faster time.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, won, groups_found, mistakes, elapsed_ms
         FROM daily_results
         WHERE date=?
         ORDER BY won DESC, groups_found DESC, mistakes ASC, elapsed_ms ASC, created_at ASC
         LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Won, &r.GroupsFound, &r.Mistakes, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
