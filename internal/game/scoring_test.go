package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuesserPoints(t *testing.T) {
	got := make([]int, 0, 7)
	for rank := 0; rank < 7; rank++ {
		got = append(got, GuesserPoints(rank))
	}
	assert.Equal(t, []int{100, 80, 60, 40, 20, 10, 10}, got)
}

func TestPickerScore(t *testing.T) {
	tests := []struct {
		name     string
		correct  int
		guessers int
		want     int
	}{
		{"two of three", 2, 3, 67},
		{"one of three", 1, 3, 33},
		{"everyone", 4, 4, 100},
		{"nobody", 0, 5, 0},
		{"half rounds up", 1, 2, 50},
		{"no guessers", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickerScore(tt.correct, tt.guessers))
		})
	}
}

func TestMatchesWord(t *testing.T) {
	assert.True(t, MatchesWord("  苹果 ", "苹果", "Apple"))
	assert.True(t, MatchesWord("APPLE", "苹果", "Apple"))
	assert.True(t, MatchesWord("ice cream", "冰淇淋", " Ice Cream"))
	assert.False(t, MatchesWord("apples", "苹果", "Apple"))
	assert.False(t, MatchesWord("   ", "", ""))
}

func TestLetterCount(t *testing.T) {
	assert.Equal(t, 8, letterCount("Ice Cream"))
	assert.Equal(t, 5, letterCount(" apple\t"))
	assert.Equal(t, 3, wordLength("冰淇淋", 0))
	assert.Equal(t, 7, wordLength("冰淇淋", 7))
}
