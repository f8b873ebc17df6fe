// internal/game/engine.go
//
// Core judge for a single Connections episode.
// Responsibilities:
//   - Create episodes from a validated puzzle.
//   - Parse, validate and judge one guess per turn.
//   - Charge mistakes for incorrect and rejected guesses alike.
//   - Compose the exact player-facing response message.
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - An episode is owned by one caller at a time; nothing here locks.
//   - Win is checked before loss (CheckOutcome).
//   - MaxTurns is an outer guard consulted by Done, not part of Outcome.
package game

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/robalobadob/connections/internal/puzzle"
)

// ErrEpisodeOver is returned when a guess arrives after the episode stopped.
var ErrEpisodeOver = errors.New("episode finished")

// Episode couples immutable ground truth with its mutable state.
type Episode struct {
	ID     string         `json:"id"`
	Puzzle *puzzle.Puzzle `json:"puzzle"`
	State  State          `json:"state"`
}

// New starts an episode. remaining_words takes the puzzle's presentation
// order; maxTurns <= 0 disables the turn guard.
func New(p *puzzle.Puzzle, maxTurns int) *Episode {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &Episode{
		ID:     uuid.NewString(),
		Puzzle: p,
		State: State{
			PuzzleID:       p.ID,
			RemainingWords: append([]string(nil), p.Words...),
			MaxMistakes:    DefaultMaxMistakes,
			FoundGroups:    []FoundGroup{},
			MaxTurns:       maxTurns,
			Outcome:        OutcomeContinue,
		},
	}
}

// CheckOutcome evaluates the termination conditions in priority order:
// won, then lost, then continue.
func CheckOutcome(s State) Outcome {
	switch {
	case len(s.FoundGroups) >= puzzle.GroupCount:
		return OutcomeWon
	case s.Mistakes >= s.MaxMistakes:
		return OutcomeLost
	default:
		return OutcomeContinue
	}
}

// Done reports whether no further turn should be offered: the outcome is
// terminal or the turn guard has been reached.
func (e *Episode) Done() bool {
	if CheckOutcome(e.State).Terminal() {
		return true
	}
	return e.State.MaxTurns > 0 && e.State.Turns >= e.State.MaxTurns
}

// ApplyGuess judges the player's latest turn content and mutates state.
// The only error is ErrEpisodeOver; malformed input is a judged turn.
func (e *Episode) ApplyGuess(content string) (Turn, error) {
	if e.Done() {
		return Turn{Outcome: e.State.Outcome}, ErrEpisodeOver
	}
	e.State.Turns++

	raw, ok := ParseGuess(content)
	if !ok {
		return e.reject(&Rejection{Reason: ReasonNoGuess, Message: noGuessMessage}), nil
	}
	guess, err := ValidateGuess(raw, e.State.RemainingWords)
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			return e.reject(rej), nil
		}
		return Turn{}, err
	}
	return e.judge(guess), nil
}

// judge matches a validated guess against the unfound groups.
func (e *Episode) judge(guess mapset.Set[string]) Turn {
	oneAway := false
	for _, g := range e.unfound() {
		members := mapset.NewThreadUnsafeSet(g.Members...)
		if guess.Equal(members) {
			return e.correct(g, guess)
		}
		if guess.Intersect(members).Cardinality() == puzzle.GroupSize-1 {
			oneAway = true
		}
	}

	prefix := "Incorrect."
	if oneAway {
		prefix = "Incorrect. One away!"
	}
	t := e.mistake(prefix)
	t.Verdict = VerdictIncorrect
	t.OneAway = oneAway
	return t
}

// correct records a found group and composes the win or continue message.
func (e *Episode) correct(g puzzle.Group, guess mapset.Set[string]) Turn {
	s := &e.State
	found := FoundGroup{Name: g.Name, Level: g.Level}
	s.FoundGroups = append(s.FoundGroups, found)

	kept := make([]string, 0, len(s.RemainingWords))
	for _, w := range s.RemainingWords {
		if !guess.Contains(w) {
			kept = append(kept, w)
		}
	}
	s.RemainingWords = kept
	s.Outcome = CheckOutcome(*s)

	var msg string
	if s.Outcome == OutcomeWon {
		msg = fmt.Sprintf("Correct! %s\n\nCongratulations! You found all %d groups in %d mistake%s. Puzzle solved!",
			g.Name, puzzle.GroupCount, s.Mistakes, plural(s.Mistakes))
	} else {
		msg = fmt.Sprintf("Correct! %s\n\nRemaining words (%d): %s\n\nMake your next guess.",
			g.Name, len(s.RemainingWords), strings.Join(s.RemainingWords, ", "))
	}
	return Turn{Verdict: VerdictCorrect, Group: &found, Message: msg, Outcome: s.Outcome}
}

// reject charges a mistake for malformed input.
func (e *Episode) reject(r *Rejection) Turn {
	t := e.mistake(r.Message)
	t.Verdict = VerdictRejected
	t.Reason = r.Reason
	return t
}

// mistake charges one mistake and composes the budget message; the mistake
// that exhausts the budget produces the game-over message instead.
func (e *Episode) mistake(reason string) Turn {
	s := &e.State
	s.Mistakes++
	s.Outcome = CheckOutcome(*s)

	left := s.MaxMistakes - s.Mistakes
	var msg string
	if left <= 0 {
		msg = fmt.Sprintf("%s No mistakes remaining. Game over! You found %d/%d groups.",
			reason, len(s.FoundGroups), puzzle.GroupCount)
	} else {
		msg = fmt.Sprintf("%s %d mistake%s remaining.\n\nCurrent words (%d): %s",
			reason, left, plural(left), len(s.RemainingWords), strings.Join(s.RemainingWords, ", "))
	}
	return Turn{Message: msg, Outcome: s.Outcome}
}

// unfound returns the puzzle groups not yet solved, in puzzle order.
func (e *Episode) unfound() []puzzle.Group {
	done := make(map[string]bool, len(e.State.FoundGroups))
	for _, f := range e.State.FoundGroups {
		done[f.Name] = true
	}
	out := make([]puzzle.Group, 0, puzzle.GroupCount)
	for _, g := range e.Puzzle.Groups {
		if !done[g.Name] {
			out = append(out, g)
		}
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
