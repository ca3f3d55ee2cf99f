package ranker

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/tokenizer"
)

// ScoreInline scores notes for the in-editor suggestion widget using two
// signals: the sentence being written and the word under the cursor. It
// counts token overlap instead of building TF-IDF vectors. A sentence with
// no terms yields nil.
func ScoreInline(word, sentence string, all []notes.Note, w InlineWeights) []ScoredNote {
	sentenceTerms := distinct(tokenizer.Terms(sentence))
	if len(sentenceTerms) == 0 || len(all) == 0 {
		return nil
	}
	wordLower := strings.ToLower(strings.TrimSpace(word))
	sentenceLower := strings.ToLower(sentence)

	scored := make([]ScoredNote, 0, len(all))
	for _, note := range all {
		contentLower := strings.ToLower(note.Content)
		noteTokens := tokenizer.Tokenize(contentLower)

		var score float64
		for _, term := range sentenceTerms {
			if noteTokens.Has(term) {
				score += w.TokenMatch
			}
		}
		if wordLower != "" && noteTokens.Has(wordLower) {
			score += w.WordToken
		}
		switch {
		case strings.Contains(contentLower, sentenceLower):
			score += w.SentenceMatch
		case wordLower != "" && strings.Contains(contentLower, wordLower):
			score += w.WordMatch
		}
		scored = append(scored, ScoredNote{Note: note, Score: score})
	}
	return scored
}

// SuggestInline ranks notes for the inline widget.
func SuggestInline(word, sentence string, all []notes.Note, w InlineWeights, limit int) []ScoredNote {
	return Rank(ScoreInline(word, sentence, all, w), limit)
}
