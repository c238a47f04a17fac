package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Computer Science", []string{"computer", "science"}},
		{"drops stop words", "History of the Arts", []string{"history", "art"}},
		{"strips plurals", "Sciences Studies Classes", []string{"science", "study", "class"}},
		{"keeps ss and us endings", "Business Campus Analysis", []string{"business", "campus", "analysis"}},
		{"splits punctuation", "B.Sc./M.Sc. (Hons)", []string{"sc", "sc", "hon"}},
		{"keeps level codes", "UG", []string{"ug"}},
		{"drops single chars", "a b c", []string{}},
		{"empty", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestUniqueTerms(t *testing.T) {
	assert.Equal(t, []string{"data", "science"}, uniqueTerms("data science DATA sciences"))
}

func TestIDFDecreasesWithDocFrequency(t *testing.T) {
	assert.Greater(t, idf(10, 1), idf(10, 5))
	assert.Greater(t, idf(10, 10), 0.0)
}

func TestTFNormSaturates(t *testing.T) {
	assert.Greater(t, tfNorm(2, 2, 2), tfNorm(1, 2, 2))
	assert.Less(t, tfNorm(100, 2, 2), k1+1)
}
