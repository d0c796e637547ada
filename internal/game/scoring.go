package game

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

var rankPoints = []int{100, 80, 60, 40, 20}

const lateGuessPoints = 10

// GuesserPoints returns the points for the correct guess at the given
// zero-based rank.
func GuesserPoints(rank int) int {
	if rank >= 0 && rank < len(rankPoints) {
		return rankPoints[rank]
	}
	return lateGuessPoints
}

// PickerScore rewards the picker with the share of guessers who got the word,
// scaled to 100.
func PickerScore(correct, guessers int) int {
	if guessers <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(guessers) * 100))
}

// MatchesWord compares a guess against either locale of the word, ignoring
// case and surrounding whitespace.
func MatchesWord(guess, word, wordEn string) bool {
	normalized := strings.ToLower(strings.TrimSpace(guess))
	if normalized == "" {
		return false
	}
	if word != "" && normalized == strings.ToLower(strings.TrimSpace(word)) {
		return true
	}
	return wordEn != "" && normalized == strings.ToLower(strings.TrimSpace(wordEn))
}

func letterCount(text string) int {
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

func wordLength(word string, stored int) int {
	if stored > 0 {
		return stored
	}
	return utf8.RuneCountInString(strings.TrimSpace(word))
}
