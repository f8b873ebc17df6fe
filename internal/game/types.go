// internal/game/types.go
//
// Core type definitions for the Connections judge.
// Defines:
//   - Outcome: tagged episode status (playing/won/lost).
//   - Verdict: per-turn classification (correct/incorrect/rejected).
//   - State: the mutable per-episode record.
//   - Turn: everything produced by judging one guess.

package game

// Outcome is the episode status evaluated after every turn.
// Possible values:
//   - "playing": another guess is solicited.
//   - "won":     all four groups found (terminal).
//   - "lost":    mistake budget exhausted (terminal).
type Outcome string

const (
	OutcomeContinue Outcome = "playing"
	OutcomeWon      Outcome = "won"
	OutcomeLost     Outcome = "lost"
)

// Terminal reports whether no further turns may be judged.
func (o Outcome) Terminal() bool { return o == OutcomeWon || o == OutcomeLost }

// Verdict classifies a single judged turn.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictRejected  Verdict = "rejected" // parser or validator refused the input
)

const (
	DefaultMaxMistakes = 4
	DefaultMaxTurns    = 12
)

// FoundGroup records a solved group in the order it was solved.
type FoundGroup struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// State is the per-episode mutable record. It only changes through
// Episode.ApplyGuess.
type State struct {
	PuzzleID       string       `json:"puzzleId"`
	RemainingWords []string     `json:"remainingWords"` // unplaced words, presentation order
	Mistakes       int          `json:"mistakes"`
	MaxMistakes    int          `json:"maxMistakes"`
	FoundGroups    []FoundGroup `json:"foundGroups"` // append-only
	Turns          int          `json:"turns"`
	MaxTurns       int          `json:"maxTurns"` // external episode-length guard; 0 disables
	Outcome        Outcome      `json:"outcome"`
}

// Turn is the result of judging one guess.
type Turn struct {
	Verdict Verdict     `json:"verdict"`
	Reason  Reason      `json:"reason,omitempty"` // set when Verdict == VerdictRejected
	Group   *FoundGroup `json:"group,omitempty"`  // set when Verdict == VerdictCorrect
	OneAway bool        `json:"oneAway"`
	Message string      `json:"message"`
	Outcome Outcome     `json:"outcome"`
}
