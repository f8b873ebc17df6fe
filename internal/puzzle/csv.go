// internal/puzzle/csv.go
//
// Tabular loader: one row per word, columns
//   Game ID, Puzzle Date, Word, Group Name, Group Level
// Rows are grouped by Game ID in first-seen order. Words keep source order
// here; Build applies the seeded shuffle.

package puzzle

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// Column headers expected in the CSV source.
const (
	ColGameID     = "Game ID"
	ColDate       = "Puzzle Date"
	ColWord       = "Word"
	ColGroupName  = "Group Name"
	ColGroupLevel = "Group Level"
)

// DefaultSeed is the shuffle seed used when none is configured.
const DefaultSeed int64 = 42

type rawPuzzle struct {
	id, date string
	words    []string
	groups   []*Group
	byName   map[string]*Group
}

// ReadCSV parses every puzzle in r and validates each one.
func ReadCSV(r io.Reader) ([]*Puzzle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, need := range []string{ColGameID, ColDate, ColWord, ColGroupName, ColGroupLevel} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}

	var order []*rawPuzzle
	byID := make(map[string]*rawPuzzle)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(c string) string { return strings.TrimSpace(rec[col[c]]) }

		gid := get(ColGameID)
		rp, ok := byID[gid]
		if !ok {
			rp = &rawPuzzle{id: gid, date: get(ColDate), byName: make(map[string]*Group)}
			byID[gid] = rp
			order = append(order, rp)
		}
		word := get(ColWord)
		rp.words = append(rp.words, word)

		name := get(ColGroupName)
		g, ok := rp.byName[name]
		if !ok {
			lvl, err := strconv.Atoi(get(ColGroupLevel))
			if err != nil {
				return nil, fmt.Errorf("line %d: group level: %w", line, err)
			}
			g = &Group{Name: name, Level: lvl}
			rp.byName[name] = g
			rp.groups = append(rp.groups, g)
		}
		g.Members = append(g.Members, word)
	}

	out := make([]*Puzzle, 0, len(order))
	for _, rp := range order {
		groups := make([]Group, len(rp.groups))
		for i, g := range rp.groups {
			groups[i] = *g
		}
		p, err := New(rp.id, rp.date, rp.words, groups)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Shuffle returns a copy of p with its presentation order permuted by rng.
func Shuffle(p *Puzzle, rng *rand.Rand) *Puzzle {
	cp := *p
	cp.Words = append([]string(nil), p.Words...)
	rng.Shuffle(len(cp.Words), func(i, j int) { cp.Words[i], cp.Words[j] = cp.Words[j], cp.Words[i] })
	return &cp
}
