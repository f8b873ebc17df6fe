// internal/game/guess.go
//
// Guess parsing and structural validation.
//
// ParseGuess pulls the first <guess>...</guess> block out of a free-text turn.
// ValidateGuess turns the raw block into a 4-word set, or a *Rejection with a
// reason code and the player-facing message. Rejections are judgments, not
// faults: the judge charges one mistake for each.

package game

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/robalobadob/connections/internal/puzzle"
)

// Reason codes for rejected guesses.
type Reason string

const (
	ReasonNoGuess        Reason = "no_guess"
	ReasonWrongCount     Reason = "wrong_count"
	ReasonDuplicateWords Reason = "duplicate_words"
	ReasonInvalidWords   Reason = "invalid_words"
)

var (
	ErrNoGuessFound     = errors.New("no guess found")
	ErrWrongWordCount   = errors.New("wrong word count")
	ErrDuplicateWords   = errors.New("duplicate words")
	ErrWordsNotInPuzzle = errors.New("words not in puzzle")
)

// Rejection is a recoverable judgment on malformed input.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string { return string(r.Reason) + ": " + r.Message }

// Unwrap maps the reason onto its sentinel so callers can use errors.Is.
func (r *Rejection) Unwrap() error {
	switch r.Reason {
	case ReasonNoGuess:
		return ErrNoGuessFound
	case ReasonWrongCount:
		return ErrWrongWordCount
	case ReasonDuplicateWords:
		return ErrDuplicateWords
	case ReasonInvalidWords:
		return ErrWordsNotInPuzzle
	}
	return nil
}

const noGuessMessage = "No <guess> tags found. Please format your guess as: <guess>WORD1, WORD2, WORD3, WORD4</guess>."

var (
	guessTag  = regexp.MustCompile(`(?s)<guess>(.*?)</guess>`)
	separator = regexp.MustCompile(`[,\n]+`)
)

// ParseGuess returns the trimmed inner text of the first guess block.
// ok is false when there is no block or it is blank.
func ParseGuess(content string) (raw string, ok bool) {
	m := guessTag.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	raw = strings.TrimSpace(m[1])
	return raw, raw != ""
}

// SplitGuess tokenizes on commas/newlines, normalizing and dropping blanks.
func SplitGuess(raw string) []string {
	var out []string
	for _, tok := range separator.Split(strings.TrimSpace(raw), -1) {
		if w := puzzle.Normalize(tok); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// ValidateGuess checks count, duplicates and membership in remaining, in
// that order.
func ValidateGuess(raw string, remaining []string) (mapset.Set[string], error) {
	words := SplitGuess(raw)
	if len(words) != puzzle.GroupSize {
		return nil, &Rejection{
			Reason:  ReasonWrongCount,
			Message: fmt.Sprintf("Please guess exactly %d words (you provided %d).", puzzle.GroupSize, len(words)),
		}
	}

	guess := mapset.NewThreadUnsafeSet(words...)
	if guess.Cardinality() != len(words) {
		return nil, &Rejection{
			Reason:  ReasonDuplicateWords,
			Message: fmt.Sprintf("Guess contains duplicate word(s): %s.", strings.Join(duplicates(words), ", ")),
		}
	}

	invalid := guess.Difference(mapset.NewThreadUnsafeSet(remaining...)).ToSlice()
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &Rejection{
			Reason:  ReasonInvalidWords,
			Message: fmt.Sprintf("Word(s) not in current puzzle: %s.", strings.Join(invalid, ", ")),
		}
	}
	return guess, nil
}

// duplicates lists words occurring more than once, sorted.
func duplicates(words []string) []string {
	seen := make(map[string]int, len(words))
	for _, w := range words {
		seen[w]++
	}
	var out []string
	for w, n := range seen {
		if n > 1 {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}
