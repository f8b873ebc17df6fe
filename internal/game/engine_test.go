package game

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/connections/internal/puzzle"
)

// testPuzzle is the A/B/C/D example, presented in group order.
func testPuzzle(t *testing.T) *puzzle.Puzzle {
	t.Helper()
	groups := []puzzle.Group{
		{Name: "A", Level: 0, Members: []string{"CAT", "DOG", "BIRD", "FISH"}},
		{Name: "B", Level: 1, Members: []string{"RED", "BLUE", "GREEN", "PINK"}},
		{Name: "C", Level: 2, Members: []string{"ONE", "TWO", "THREE", "FOUR"}},
		{Name: "D", Level: 3, Members: []string{"JAN", "FEB", "MAR", "APR"}},
	}
	var words []string
	for _, g := range groups {
		words = append(words, g.Members...)
	}
	p, err := puzzle.New("ex", "2024-01-01", words, groups)
	require.NoError(t, err)
	return p
}

func guess(words string) string { return "<guess>" + words + "</guess>" }

func checkInvariants(t *testing.T, e *Episode) {
	t.Helper()
	s := e.State
	assert.Equal(t, puzzle.WordCount, len(s.RemainingWords)+puzzle.GroupSize*len(s.FoundGroups))
	names := map[string]bool{}
	for _, g := range s.FoundGroups {
		assert.False(t, names[g.Name], "group %s found twice", g.Name)
		names[g.Name] = true
	}
	assert.LessOrEqual(t, s.Mistakes, s.MaxMistakes)
}

func TestApplyGuess_Correct(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)

	turn, err := e.ApplyGuess("I think pets.\n" + guess("cat, dog, bird, fish"))
	require.NoError(t, err)

	assert.Equal(t, VerdictCorrect, turn.Verdict)
	assert.Equal(t, &FoundGroup{Name: "A", Level: 0}, turn.Group)
	assert.Equal(t, OutcomeContinue, turn.Outcome)
	assert.Equal(t, []FoundGroup{{Name: "A", Level: 0}}, e.State.FoundGroups)
	assert.Equal(t, 0, e.State.Mistakes)
	assert.Equal(t,
		[]string{"RED", "BLUE", "GREEN", "PINK", "ONE", "TWO", "THREE", "FOUR", "JAN", "FEB", "MAR", "APR"},
		e.State.RemainingWords)
	assert.Equal(t,
		"Correct! A\n\nRemaining words (12): RED, BLUE, GREEN, PINK, ONE, TWO, THREE, FOUR, JAN, FEB, MAR, APR\n\nMake your next guess.",
		turn.Message)
	checkInvariants(t, e)
}

func TestApplyGuess_OrderAndCaseInsensitive(t *testing.T) {
	for _, in := range []string{
		"Fish, BIRD, dog, Cat",
		"fish\nbird\ndog\ncat",
		"  fish ,, bird,\n dog ,cat , ",
	} {
		e := New(testPuzzle(t), DefaultMaxTurns)
		turn, err := e.ApplyGuess(guess(in))
		require.NoError(t, err)
		assert.Equal(t, VerdictCorrect, turn.Verdict, in)
	}
}

func TestApplyGuess_OneAway(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)

	turn, err := e.ApplyGuess(guess("cat, dog, bird, red"))
	require.NoError(t, err)

	assert.Equal(t, VerdictIncorrect, turn.Verdict)
	assert.True(t, turn.OneAway)
	assert.Equal(t, 1, e.State.Mistakes)
	assert.True(t, strings.HasPrefix(turn.Message, "Incorrect. One away! 3 mistakes remaining.\n\nCurrent words (16): CAT, DOG, BIRD, FISH, RED"))
	checkInvariants(t, e)
}

func TestApplyGuess_PlainIncorrect(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)

	turn, err := e.ApplyGuess(guess("cat, dog, red, blue"))
	require.NoError(t, err)
	assert.False(t, turn.OneAway)
	assert.True(t, strings.HasPrefix(turn.Message, "Incorrect. 3 mistakes remaining."))
}

func TestApplyGuess_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		reason   Reason
		sentinel error
		message  string
	}{
		{"no tags", "CAT, DOG, BIRD, FISH", ReasonNoGuess, ErrNoGuessFound,
			"No <guess> tags found. Please format your guess as: <guess>WORD1, WORD2, WORD3, WORD4</guess>. 3 mistakes remaining."},
		{"blank block", "<guess>   </guess>", ReasonNoGuess, ErrNoGuessFound,
			"No <guess> tags found."},
		{"too few", guess("cat, dog"), ReasonWrongCount, ErrWrongWordCount,
			"Please guess exactly 4 words (you provided 2). 3 mistakes remaining."},
		{"too many", guess("cat, dog, bird, fish, red"), ReasonWrongCount, ErrWrongWordCount,
			"Please guess exactly 4 words (you provided 5)."},
		{"duplicate", guess("cat, CAT, dog, bird"), ReasonDuplicateWords, ErrDuplicateWords,
			"Guess contains duplicate word(s): CAT. 3 mistakes remaining."},
		{"not in puzzle", guess("cat, zebra, dog, apple"), ReasonInvalidWords, ErrWordsNotInPuzzle,
			"Word(s) not in current puzzle: APPLE, ZEBRA. 3 mistakes remaining."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testPuzzle(t), DefaultMaxTurns)
			turn, err := e.ApplyGuess(tt.content)
			require.NoError(t, err)

			assert.Equal(t, VerdictRejected, turn.Verdict)
			assert.Equal(t, tt.reason, turn.Reason)
			assert.Equal(t, 1, e.State.Mistakes, "malformed guess costs exactly one mistake")
			assert.True(t, strings.HasPrefix(turn.Message, tt.message), turn.Message)
			checkInvariants(t, e)

			if tt.reason != ReasonNoGuess {
				raw, _ := ParseGuess(tt.content)
				_, verr := ValidateGuess(raw, e.State.RemainingWords)
				assert.True(t, errors.Is(verr, tt.sentinel))
			}
		})
	}
}

func TestApplyGuess_FoundWordsAreNoLongerValid(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	_, err := e.ApplyGuess(guess("cat, dog, bird, fish"))
	require.NoError(t, err)

	turn, err := e.ApplyGuess(guess("cat, red, blue, green"))
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidWords, turn.Reason)
	assert.Equal(t, "Word(s) not in current puzzle: CAT. 3 mistakes remaining.\n\nCurrent words (12): RED, BLUE, GREEN, PINK, ONE, TWO, THREE, FOUR, JAN, FEB, MAR, APR", turn.Message)
}

func TestApplyGuess_LossAfterFourMistakes(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	bad := []string{
		guess("cat, dog, red, blue"),
		guess("one, two, jan, feb"),
		"no tags at all",
		guess("cat, red, one, jan"),
	}
	var last Turn
	for i, in := range bad {
		var err error
		last, err = e.ApplyGuess(in)
		require.NoError(t, err)
		if i < 3 {
			assert.Equal(t, OutcomeContinue, last.Outcome)
			assert.False(t, e.Done())
		}
	}
	assert.Equal(t, 4, e.State.Mistakes)
	assert.Equal(t, OutcomeLost, last.Outcome)
	assert.Equal(t, "Incorrect. No mistakes remaining. Game over! You found 0/4 groups.", last.Message)
	assert.True(t, e.Done())

	_, err := e.ApplyGuess(guess("cat, dog, bird, fish"))
	assert.ErrorIs(t, err, ErrEpisodeOver)
	assert.Equal(t, 4, e.State.Mistakes)
	assert.Equal(t, 4, e.State.Turns)
}

func TestApplyGuess_MalformedFinalMistakeEndsGame(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	_, _ = e.ApplyGuess(guess("cat, dog, bird, fish"))
	e.State.Mistakes = 3

	turn, err := e.ApplyGuess(guess("red"))
	require.NoError(t, err)
	assert.Equal(t, "Please guess exactly 4 words (you provided 1). No mistakes remaining. Game over! You found 1/4 groups.", turn.Message)
	assert.Equal(t, OutcomeLost, turn.Outcome)
}

func TestApplyGuess_WinWithMistakes(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	seq := []string{
		guess("cat, dog, bird, fish"),
		guess("red, blue, green, one"), // one away
		guess("red, blue, green, pink"),
		guess("one, two, three, four"),
	}
	for _, in := range seq {
		_, err := e.ApplyGuess(in)
		require.NoError(t, err)
		checkInvariants(t, e)
	}
	e.State.Mistakes = 3 // win must still be checked first

	turn, err := e.ApplyGuess(guess("apr, mar, feb, jan"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeWon, turn.Outcome)
	assert.Equal(t, "Correct! D\n\nCongratulations! You found all 4 groups in 3 mistakes. Puzzle solved!", turn.Message)
	assert.Empty(t, e.State.RemainingWords)
	assert.True(t, e.Done())
	checkInvariants(t, e)
}

func TestApplyGuess_WinSingularMistake(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	_, _ = e.ApplyGuess(guess("cat, dog, red, blue"))
	for _, g := range e.Puzzle.Groups {
		turn, err := e.ApplyGuess(FormatGuess(g.Members))
		require.NoError(t, err)
		if g.Name == "D" {
			assert.Contains(t, turn.Message, "in 1 mistake. Puzzle solved!")
		}
	}
	assert.Equal(t, OutcomeWon, e.State.Outcome)
}

func TestCheckOutcome_Priority(t *testing.T) {
	four := []FoundGroup{{"A", 0}, {"B", 1}, {"C", 2}, {"D", 3}}
	tests := []struct {
		name  string
		state State
		want  Outcome
	}{
		{"fresh", State{MaxMistakes: 4}, OutcomeContinue},
		{"lost", State{MaxMistakes: 4, Mistakes: 4}, OutcomeLost},
		{"won beats lost", State{MaxMistakes: 4, Mistakes: 4, FoundGroups: four}, OutcomeWon},
		{"won", State{MaxMistakes: 4, Mistakes: 1, FoundGroups: four}, OutcomeWon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckOutcome(tt.state))
		})
	}
}

func TestEpisode_TurnGuard(t *testing.T) {
	e := New(testPuzzle(t), 2)
	_, _ = e.ApplyGuess(guess("cat, dog, bird, fish"))
	_, _ = e.ApplyGuess(guess("red, blue, green, pink"))

	assert.True(t, e.Done())
	assert.Equal(t, OutcomeContinue, e.State.Outcome)
	_, err := e.ApplyGuess(guess("one, two, three, four"))
	assert.ErrorIs(t, err, ErrEpisodeOver)
}

// randomGuess draws four words, sometimes including stale or junk ones.
func randomGuess(rng *rand.Rand, p *puzzle.Puzzle) string {
	if rng.Intn(10) == 0 {
		return "no guess here"
	}
	words := append([]string(nil), p.Words...)
	rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	if rng.Intn(4) == 0 {
		return FormatGuess(p.Groups[rng.Intn(len(p.Groups))].Members)
	}
	return FormatGuess(words[:3+rng.Intn(2)])
}

func TestApplyGuess_DeterministicAndInvariant(t *testing.T) {
	p := testPuzzle(t)
	for seed := int64(1); seed <= 50; seed++ {
		play := func() ([]string, State) {
			rng := rand.New(rand.NewSource(seed))
			e := New(p, DefaultMaxTurns)
			var msgs []string
			for !e.Done() {
				turn, err := e.ApplyGuess(randomGuess(rng, p))
				require.NoError(t, err)
				checkInvariants(t, e)
				msgs = append(msgs, turn.Message)
			}
			return msgs, e.State
		}
		m1, s1 := play()
		m2, s2 := play()
		assert.Equal(t, m1, m2)
		assert.Equal(t, s1, s2)
	}
}

func TestEpisode_JSONRoundTrip(t *testing.T) {
	e := New(testPuzzle(t), DefaultMaxTurns)
	_, _ = e.ApplyGuess(guess("cat, dog, bird, fish"))
	_, _ = e.ApplyGuess(guess("cat"))

	b, err := json.Marshal(e)
	require.NoError(t, err)
	var got Episode
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, e.State, got.State)
	assert.Equal(t, e.Puzzle, got.Puzzle)

	turn, err := got.ApplyGuess(guess("red, blue, green, pink"))
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, turn.Verdict)
}

func TestScore(t *testing.T) {
	assert.Equal(t, Metrics{}, Score(State{}))

	m := Score(State{Mistakes: 2, FoundGroups: []FoundGroup{{"A", 0}, {"D", 3}, {"C", 2}}})
	assert.Equal(t, 0.75, m.Reward)
	assert.Equal(t, 2.0, m.MistakesUsed)
	assert.Equal(t, 3.0, m.GroupsFound)
	assert.InDelta(t, 5.0/3.0, m.AvgDifficultySolved, 1e-9)

	sum := Summarize([]Metrics{{Reward: 1}, {Reward: 0.5}}, []bool{true, false})
	assert.Equal(t, 2, sum.Episodes)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 0.75, sum.Mean.Reward)
}

func TestQuestion(t *testing.T) {
	e := New(testPuzzle(t), 0)
	assert.True(t, strings.HasPrefix(e.Question(), "The 16 words are:\nCAT, DOG, BIRD, FISH, RED"))
	assert.True(t, strings.HasSuffix(e.Question(), "Make your first guess."))
}
