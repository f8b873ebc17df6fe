// internal/puzzle/puzzle.go
//
// Immutable ground truth for one Connections episode.
// Responsibilities:
//   - Define Puzzle and Group value types (JSON round-trippable).
//   - Enforce the partition invariant at construction: 4 groups × 4 members,
//     16 unique words, every word in exactly one group.
//   - Normalize all words to upper case.
//
// A Puzzle that fails validation never reaches an episode.
package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	GroupCount = 4  // groups per puzzle
	GroupSize  = 4  // members per group
	WordCount  = 16 // GroupCount * GroupSize
)

// ErrInvalidPuzzle is wrapped by every validation failure.
var ErrInvalidPuzzle = errors.New("invalid puzzle")

// Group is one named category of exactly four words.
type Group struct {
	Name    string   `json:"name"`
	Level   int      `json:"level"`   // difficulty ordinal, 0 (easiest) .. 3
	Members []string `json:"members"` // upper-case, sorted
}

// Puzzle holds the full vocabulary and its ground-truth grouping.
type Puzzle struct {
	ID     string   `json:"id"`
	Date   string   `json:"date"`  // YYYY-MM-DD
	Words  []string `json:"words"` // presentation order
	Groups []Group  `json:"groups"`
}

// Normalize upper-cases and trims a single word.
func Normalize(w string) string { return strings.ToUpper(strings.TrimSpace(w)) }

// New builds a validated Puzzle. words fixes the presentation order; groups
// are copied and their members normalized and sorted.
func New(id, date string, words []string, groups []Group) (*Puzzle, error) {
	p := &Puzzle{
		ID:     id,
		Date:   date,
		Words:  make([]string, len(words)),
		Groups: make([]Group, len(groups)),
	}
	for i, w := range words {
		p.Words[i] = Normalize(w)
	}
	for i, g := range groups {
		members := make([]string, len(g.Members))
		for j, m := range g.Members {
			members[j] = Normalize(m)
		}
		sort.Strings(members)
		p.Groups[i] = Group{Name: strings.TrimSpace(g.Name), Level: g.Level, Members: members}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the partition invariant.
func (p *Puzzle) Validate() error {
	if len(p.Groups) != GroupCount {
		return fmt.Errorf("%w %q: want %d groups, got %d", ErrInvalidPuzzle, p.ID, GroupCount, len(p.Groups))
	}
	if len(p.Words) != WordCount {
		return fmt.Errorf("%w %q: want %d words, got %d", ErrInvalidPuzzle, p.ID, WordCount, len(p.Words))
	}

	vocab := make(map[string]bool, WordCount)
	for _, w := range p.Words {
		if w == "" {
			return fmt.Errorf("%w %q: empty word", ErrInvalidPuzzle, p.ID)
		}
		if vocab[w] {
			return fmt.Errorf("%w %q: duplicate word %s", ErrInvalidPuzzle, p.ID, w)
		}
		vocab[w] = false
	}

	names := make(map[string]bool, GroupCount)
	for _, g := range p.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w %q: unnamed group", ErrInvalidPuzzle, p.ID)
		}
		if names[g.Name] {
			return fmt.Errorf("%w %q: duplicate group %q", ErrInvalidPuzzle, p.ID, g.Name)
		}
		names[g.Name] = true
		if len(g.Members) != GroupSize {
			return fmt.Errorf("%w %q: group %q has %d members", ErrInvalidPuzzle, p.ID, g.Name, len(g.Members))
		}
		for _, m := range g.Members {
			seen, ok := vocab[m]
			switch {
			case !ok:
				return fmt.Errorf("%w %q: group %q member %s not in words", ErrInvalidPuzzle, p.ID, g.Name, m)
			case seen:
				return fmt.Errorf("%w %q: word %s in more than one group", ErrInvalidPuzzle, p.ID, m)
			}
			vocab[m] = true
		}
	}
	// 16 distinct words and 16 distinct placements: the groups cover the vocabulary.
	return nil
}

// UnmarshalJSON decodes and re-validates, so malformed records are rejected
// at the process boundary.
func (p *Puzzle) UnmarshalJSON(b []byte) error {
	type raw Puzzle
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	np, err := New(r.ID, r.Date, r.Words, r.Groups)
	if err != nil {
		return err
	}
	*p = *np
	return nil
}
