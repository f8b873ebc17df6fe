package puzzle

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []Group {
	return []Group{
		{Name: "PETS", Level: 0, Members: []string{"cat", "dog", "bird", "fish"}},
		{Name: "COLORS", Level: 1, Members: []string{"red", "blue", "green", "pink"}},
		{Name: "NUMBERS", Level: 2, Members: []string{"one", "two", "three", "four"}},
		{Name: "MONTHS", Level: 3, Members: []string{"jan", "feb", "mar", "apr"}},
	}
}

func sampleWords() []string {
	var out []string
	for _, g := range sampleGroups() {
		out = append(out, g.Members...)
	}
	return out
}

func TestNew_NormalizesAndValidates(t *testing.T) {
	p, err := New("1", "2024-01-01", sampleWords(), sampleGroups())
	require.NoError(t, err)

	assert.Len(t, p.Words, WordCount)
	assert.Equal(t, "CAT", p.Words[0])
	assert.Equal(t, []string{"BIRD", "CAT", "DOG", "FISH"}, p.Groups[0].Members)
}

func TestNew_RejectsBrokenPartition(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(words []string, groups []Group) ([]string, []Group)
	}{
		{"three groups", func(w []string, g []Group) ([]string, []Group) { return w[:12], g[:3] }},
		{"short group", func(w []string, g []Group) ([]string, []Group) {
			g[0].Members = g[0].Members[:3]
			return w, g
		}},
		{"overlap", func(w []string, g []Group) ([]string, []Group) {
			g[1].Members[0] = "CAT"
			return w, g
		}},
		{"member outside vocabulary", func(w []string, g []Group) ([]string, []Group) {
			g[3].Members[0] = "MAY"
			return w, g
		}},
		{"duplicate word", func(w []string, g []Group) ([]string, []Group) {
			w[1] = "cat"
			return w, g
		}},
		{"duplicate group name", func(w []string, g []Group) ([]string, []Group) {
			g[2].Name = "PETS"
			return w, g
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, g := tt.mutate(sampleWords(), sampleGroups())
			_, err := New("x", "2024-01-01", w, g)
			assert.ErrorIs(t, err, ErrInvalidPuzzle)
		})
	}
}

func TestPuzzle_JSONRoundTrip(t *testing.T) {
	p, err := New("7", "2025-02-14", sampleWords(), sampleGroups())
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got Puzzle
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, *p, got)
}

func TestPuzzle_UnmarshalRejectsInvalid(t *testing.T) {
	var p Puzzle
	err := json.Unmarshal([]byte(`{"id":"x","date":"2024-01-01","words":["A"],"groups":[]}`), &p)
	assert.ErrorIs(t, err, ErrInvalidPuzzle)
}

const csvFixture = `Game ID,Puzzle Date,Word,Group Name,Group Level
1,2024-05-01,cat,PETS,0
1,2024-05-01,dog,PETS,0
1,2024-05-01,bird,PETS,0
1,2024-05-01,fish,PETS,0
1,2024-05-01,red,COLORS,1
1,2024-05-01,blue,COLORS,1
1,2024-05-01,green,COLORS,1
1,2024-05-01,pink,COLORS,1
1,2024-05-01,one,NUMBERS,2
1,2024-05-01,two,NUMBERS,2
1,2024-05-01,three,NUMBERS,2
1,2024-05-01,four,NUMBERS,2
1,2024-05-01,jan,MONTHS,3
1,2024-05-01,feb,MONTHS,3
1,2024-05-01,mar,MONTHS,3
1,2024-05-01,apr,MONTHS,3
`

func evalCopy(src string) string {
	body := strings.SplitN(src, "\n", 2)[1]
	body = strings.ReplaceAll(body, "1,2024-05-01", "2,2025-01-02")
	return body
}

func TestReadCSV(t *testing.T) {
	ps, err := ReadCSV(strings.NewReader(csvFixture))
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "1", ps[0].ID)
	assert.Equal(t, "2024-05-01", ps[0].Date)
	assert.Equal(t, "MONTHS", ps[0].Groups[3].Name)
	assert.Equal(t, 3, ps[0].Groups[3].Level)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Game ID,Word\n1,cat\n"))
	assert.Error(t, err)
}

func TestBuild_SplitsByDateAndIsDeterministic(t *testing.T) {
	src := csvFixture + evalCopy(csvFixture)

	a, err := Build(strings.NewReader(src), DefaultSeed)
	require.NoError(t, err)
	b, err := Build(strings.NewReader(src), DefaultSeed)
	require.NoError(t, err)

	require.Len(t, a.Train, 1)
	require.Len(t, a.Eval, 1)
	assert.Equal(t, "2", a.Eval[0].ID)
	assert.Equal(t, a.Train[0].Words, b.Train[0].Words)
	assert.Equal(t, a.Eval[0].Words, b.Eval[0].Words)
	assert.ElementsMatch(t, sampleWordsUpper(), a.Train[0].Words)

	assert.Len(t, a.Select(SplitEval, 5), 1)
	assert.Len(t, a.Select(SplitTrain, -1), 1)
}

func TestParseSplit(t *testing.T) {
	s, err := ParseSplit(" EVAL ")
	require.NoError(t, err)
	assert.Equal(t, SplitEval, s)

	_, err = ParseSplit("test")
	assert.Error(t, err)
}

func sampleWordsUpper() []string {
	out := sampleWords()
	for i := range out {
		out[i] = Normalize(out[i])
	}
	return out
}
