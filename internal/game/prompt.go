package game

import (
	"fmt"
	"strings"
)

// SystemPrompt explains the rules and the guess syntax to the player.
const SystemPrompt = `You are playing NYT Connections. The puzzle contains 16 words that form exactly 4 groups of 4 related words.

Rules:
- Guess one group of 4 related words at a time
- You have 4 mistakes allowed before the game ends
- Win by correctly identifying all 4 groups

Format each guess with XML tags:
<guess>WORD1, WORD2, WORD3, WORD4</guess>

You may reason before your guess. Make exactly one guess per response.`

// Question is the opening prompt for an episode.
func (e *Episode) Question() string {
	return fmt.Sprintf("The %d words are:\n%s\n\nFind the 4 groups of 4 related words. Make your first guess.",
		len(e.Puzzle.Words), strings.Join(e.Puzzle.Words, ", "))
}

// FormatGuess renders words in the syntax ParseGuess accepts.
func FormatGuess(words []string) string {
	return "<guess>" + strings.Join(words, ", ") + "</guess>"
}
