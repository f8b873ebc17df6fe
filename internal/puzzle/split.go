package puzzle

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
)

// Split names a dataset partition.
type Split string

const (
	SplitTrain Split = "train"
	SplitEval  Split = "eval"
)

// EvalYear selects the eval split: puzzles whose date starts with it.
const EvalYear = "2025"

// ParseSplit accepts "train" or "eval" (case-insensitive).
func ParseSplit(s string) (Split, error) {
	switch Split(strings.ToLower(strings.TrimSpace(s))) {
	case SplitTrain:
		return SplitTrain, nil
	case SplitEval:
		return SplitEval, nil
	}
	return "", fmt.Errorf("unknown split %q (want train or eval)", s)
}

// Dataset is the shuffled, partitioned puzzle collection.
type Dataset struct {
	Train []*Puzzle
	Eval  []*Puzzle
}

// Build reads the CSV source, shuffles each puzzle's words with a single
// generator seeded by seed, and partitions by date. The same source and seed
// always yield the same dataset.
func Build(r io.Reader, seed int64) (*Dataset, error) {
	all, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	ds := &Dataset{}
	for _, p := range all {
		sp := Shuffle(p, rng)
		if strings.HasPrefix(sp.Date, EvalYear) {
			ds.Eval = append(ds.Eval, sp)
		} else {
			ds.Train = append(ds.Train, sp)
		}
	}
	return ds, nil
}

// Select returns the requested split truncated to limit entries; limit <= 0
// means all.
func (d *Dataset) Select(s Split, limit int) []*Puzzle {
	src := d.Train
	if s == SplitEval {
		src = d.Eval
	}
	if limit > 0 && limit < len(src) {
		src = src[:limit]
	}
	return src
}
