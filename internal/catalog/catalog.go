// internal/catalog/catalog.go
//
// Puzzle catalog for the server and CLI.
//
// Responsibilities:
//   - Load the puzzle table from a configured file, or fall back to the
//     embedded default in the assets package.
//   - Build the seeded train/eval dataset once.
//   - Supply lookups by puzzle ID and split listings.
//
// Sources (Load):
//   1. If path is non-empty, read that CSV file.
//   2. Otherwise use assets.PuzzlesCSV().
//
// The catalog is read-only after Load and safe for concurrent use.

package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/assets"
	"github.com/robalobadob/connections/internal/puzzle"
)

// ErrNotFound is returned for unknown puzzle IDs.
var ErrNotFound = errors.New("puzzle not found")

// Catalog indexes a built dataset.
type Catalog struct {
	ds   *puzzle.Dataset
	byID map[string]*puzzle.Puzzle
	all  []*puzzle.Puzzle // train then eval
}

// Load reads the puzzle source and builds the dataset with seed.
func Load(path string, seed int64) (*Catalog, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if path != "" {
		rc, err = os.Open(path)
	} else {
		rc, err = assets.PuzzlesCSV()
	}
	if err != nil {
		return nil, fmt.Errorf("open puzzles: %w", err)
	}
	defer rc.Close()

	c, err := FromReader(rc, seed)
	if err != nil {
		return nil, err
	}
	src := path
	if src == "" {
		src = "embedded"
	}
	train, eval := c.Stats()
	log.Info().Str("source", src).Int64("seed", seed).Int("train", train).Int("eval", eval).Msg("puzzles loaded")
	return c, nil
}

// FromReader builds a catalog from an already-open CSV source.
func FromReader(r io.Reader, seed int64) (*Catalog, error) {
	ds, err := puzzle.Build(r, seed)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	c := &Catalog{ds: ds, byID: make(map[string]*puzzle.Puzzle)}
	for _, p := range append(append([]*puzzle.Puzzle{}, ds.Train...), ds.Eval...) {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate puzzle id %q", p.ID)
		}
		c.byID[p.ID] = p
		c.all = append(c.all, p)
	}
	if len(c.all) == 0 {
		return nil, errors.New("catalog: no puzzles")
	}
	return c, nil
}

// Get returns the puzzle with the given ID.
func (c *Catalog) Get(id string) (*puzzle.Puzzle, error) {
	if p, ok := c.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns the split, truncated to limit (<= 0 means all).
func (c *Catalog) List(s puzzle.Split, limit int) []*puzzle.Puzzle {
	return c.ds.Select(s, limit)
}

// All returns every puzzle, train split first.
func (c *Catalog) All() []*puzzle.Puzzle { return c.all }

// Stats returns the split sizes.
func (c *Catalog) Stats() (train int, eval int) {
	return len(c.ds.Train), len(c.ds.Eval)
}
