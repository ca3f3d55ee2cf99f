package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/tokenizer"
)

// ComputeIDF returns the smoothed inverse document frequency of every term
// that occurs in at least one note:
//
//	idf(t) = ln((N+1) / (df(t)+1)) + 1
//
// A note counts once per distinct term however often the term repeats.
func ComputeIDF(all []notes.Note) map[string]float64 {
	df := make(map[string]int)
	for _, note := range all {
		for term := range tokenizer.Tokenize(note.Content) {
			df[term]++
		}
	}
	total := float64(len(all))
	idf := make(map[string]float64, len(df))
	for term, freq := range df {
		idf[term] = computeIDF(total, float64(freq))
	}
	return idf
}

func computeIDF(totalDocs, docFreq float64) float64 {
	return math.Log((totalDocs+1)/(docFreq+1)) + 1
}
