package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
)

func inlineCorpus() []notes.Note {
	return []notes.Note{
		{ID: "both", Content: "Buy milk tomorrow"},
		{ID: "word", Content: "Milk is great"},
		{ID: "none", Content: "Nothing here"},
	}
}

func TestScoreInline(t *testing.T) {
	w := DefaultWeights().Inline

	tests := []struct {
		name     string
		word     string
		sentence string
		want     []float64
	}{
		{"word and sentence", "milk", "buy milk", []float64{15, 9, 0}},
		{"word is case-insensitive", "MILK", "Buy Milk", []float64{15, 9, 0}},
		{"empty word", "", "buy milk", []float64{12, 1, 0}},
		{"word outside sentence", "here", "buy milk", []float64{12, 1, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored := ScoreInline(tt.word, tt.sentence, inlineCorpus(), w)
			require.Len(t, scored, len(tt.want))
			for i, s := range scored {
				assert.Equal(t, tt.want[i], s.Score, s.Note.ID)
			}
		})
	}
}

func TestScoreInline_EmptySentence(t *testing.T) {
	w := DefaultWeights().Inline
	assert.Nil(t, ScoreInline("milk", "", inlineCorpus(), w))
	assert.Nil(t, ScoreInline("milk", "the a of", inlineCorpus(), w))
	assert.Nil(t, ScoreInline("milk", "buy milk", nil, w))
}

func TestSuggestInline(t *testing.T) {
	w := DefaultWeights().Inline

	got := SuggestInline("milk", "buy milk", inlineCorpus(), w, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "both", got[0].Note.ID)
	assert.Equal(t, "word", got[1].Note.ID)

	got = SuggestInline("milk", "buy milk", inlineCorpus(), w, 1)
	assert.Len(t, got, 1)
}
