// Package ranker scores saved notes against a query and orders them by
// relevance. Scoring is TF-IDF cosine similarity plus an exact-substring
// boost and an optional recency boost; an inline mode scores plain token
// overlap for suggestions shown while typing.
//
// Every call recomputes corpus statistics from the notes it is given and
// keeps no state, so calls are safe to run concurrently.
package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/suggest/tokenizer"
)

// ScoredNote pairs a note with its relevance score and the parts the score
// is made of.
type ScoredNote struct {
	Note      notes.Note `json:"note"`
	Score     float64    `json:"score"`
	Cosine    float64    `json:"cosine"`
	Substring float64    `json:"substring_boost,omitempty"`
	Recency   float64    `json:"recency_boost,omitempty"`
}

// Params configures one scoring call. A zero Now means time.Now().
type Params struct {
	Weights Weights
	Now     time.Time
}

// Score computes a score for every note, in input order. It returns nil when
// the query has no terms or there are no notes.
func Score(query string, all []notes.Note, params Params) []ScoredNote {
	queryTerms := distinct(tokenizer.Terms(query))
	if len(queryTerms) == 0 || len(all) == 0 {
		return nil
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	w := params.Weights

	idf := ComputeIDF(all)
	queryVec := make(map[string]float64, len(queryTerms))
	var queryNormSq float64
	for _, term := range queryTerms {
		weight := idf[term]
		queryVec[term] = weight
		queryNormSq += weight * weight
	}
	queryNorm := math.Sqrt(queryNormSq)
	loweredQuery := strings.ToLower(query)

	scored := make([]ScoredNote, 0, len(all))
	for _, note := range all {
		s := ScoredNote{
			Note:   note,
			Cosine: cosine(queryTerms, queryVec, queryNorm, note.Content, idf),
		}
		if strings.Contains(strings.ToLower(note.Content), loweredQuery) {
			s.Substring = w.SubstringBoost
		}
		// Recency only breaks ties between notes that are already relevant.
		if w.RecencyEnabled && (s.Cosine > 0 || s.Substring > 0) {
			s.Recency = RecencyBoost(note.Timestamp, now, w)
		}
		s.Score = s.Cosine + s.Substring + s.Recency
		scored = append(scored, s)
	}
	return scored
}

// Rank drops non-positive scores, sorts the rest by descending score and
// truncates to limit. limit <= 0 keeps everything. The sort is stable, so
// equal scores keep input order; callers should not rely on that order.
func Rank(scored []ScoredNote, limit int) []ScoredNote {
	result := make([]ScoredNote, 0, len(scored))
	for _, s := range scored {
		if s.Score > 0 {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// SuggestScored scores and ranks all notes against query.
func SuggestScored(query string, all []notes.Note, params Params, limit int) []ScoredNote {
	return Rank(Score(query, all, params), limit)
}

// Suggest returns the notes most relevant to query, best first.
func Suggest(query string, all []notes.Note, params Params, limit int) []notes.Note {
	return Notes(SuggestScored(query, all, params, limit))
}

// Notes strips scores from a ranked list.
func Notes(scored []ScoredNote) []notes.Note {
	out := make([]notes.Note, len(scored))
	for i, s := range scored {
		out[i] = s.Note
	}
	return out
}

// RecencyBoost returns weight / (1 + age/halfLife). Timestamps in the future
// count as age zero.
func RecencyBoost(timestampMs int64, now time.Time, w Weights) float64 {
	halfLife := w.RecencyHalfLife.Milliseconds()
	if halfLife <= 0 {
		return 0
	}
	age := now.UnixMilli() - timestampMs
	if age < 0 {
		age = 0
	}
	return w.RecencyWeight / (1 + float64(age)/float64(halfLife))
}

// cosine is the cosine similarity between the query vector and the note's
// TF-IDF vector. The note norm covers all note terms, not only shared ones.
func cosine(queryTerms []string, queryVec map[string]float64, queryNorm float64, content string, idf map[string]float64) float64 {
	terms := tokenizer.Terms(content)
	tf := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, term := range terms {
		if tf[term] == 0 {
			order = append(order, term)
		}
		tf[term]++
	}

	var noteNormSq float64
	for _, term := range order {
		weight := float64(tf[term]) * idf[term]
		noteNormSq += weight * weight
	}
	noteNorm := math.Sqrt(noteNormSq)

	var dot float64
	for _, term := range queryTerms {
		dot += queryVec[term] * float64(tf[term]) * idf[term]
	}

	denominator := queryNorm * noteNorm
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

// distinct removes repeated terms, keeping first occurrences in order so
// that floating point sums are reproducible.
func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
