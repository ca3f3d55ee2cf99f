package ranker

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) int64 {
	return testNow.Add(-d).UnixMilli()
}

func params() Params {
	return Params{Weights: DefaultWeights(), Now: testNow}
}

func noRecency() Params {
	p := params()
	p.Weights.RecencyEnabled = false
	return p
}

func noteIDs(ns []notes.Note) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestComputeIDF(t *testing.T) {
	all := []notes.Note{
		{ID: "1", Content: "alpha beta"},
		{ID: "2", Content: "alpha alpha gamma"},
	}
	idf := ComputeIDF(all)

	assert.InDelta(t, math.Log(3.0/3.0)+1, idf["alpha"], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, idf["beta"], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, idf["gamma"], 1e-12)
	assert.NotContains(t, idf, "delta")
	assert.Empty(t, ComputeIDF(nil))
}

func TestSuggest_OnlyRelevantNotes(t *testing.T) {
	all := []notes.Note{
		{ID: "n1", Content: "Buy milk and eggs", Timestamp: ago(time.Hour)},
		{ID: "n2", Content: "Finish the quarterly report", Timestamp: ago(2 * time.Hour)},
	}
	got := Suggest("milk eggs shopping list", all, params(), 50)
	assert.Equal(t, []string{"n1"}, noteIDs(got))
}

func TestSuggest_ExactMatch(t *testing.T) {
	all := []notes.Note{
		{ID: "apollo", Content: "Project Apollo kickoff notes", Timestamp: testNow.UnixMilli()},
	}
	got := SuggestScored("Project Apollo kickoff notes", all, params(), 50)
	require.Len(t, got, 1)

	assert.Equal(t, "apollo", got[0].Note.ID)
	assert.InDelta(t, 1.0, got[0].Cosine, 1e-9)
	assert.Equal(t, 2.0, got[0].Substring)
	assert.InDelta(t, 0.1, got[0].Recency, 1e-9)
	assert.InDelta(t, 3.1, got[0].Score, 1e-9)
}

func TestSuggest_EmptyInputs(t *testing.T) {
	all := []notes.Note{{ID: "1", Content: "the quick brown fox", Timestamp: ago(time.Minute)}}

	tests := []struct {
		name  string
		query string
		all   []notes.Note
	}{
		{"empty query", "", all},
		{"whitespace query", "   \t", all},
		{"stopwords only", "the and of", all},
		{"punctuation only", "!!! ?? ...", all},
		{"single letters", "a b c", all},
		{"empty corpus", "quick fox", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Suggest(tt.query, tt.all, params(), 50))
		})
	}
}

func TestSuggest_Limit(t *testing.T) {
	var all []notes.Note
	for i := 0; i < 10; i++ {
		all = append(all, notes.Note{
			ID:        fmt.Sprintf("n%d", i),
			Content:   fmt.Sprintf("meeting notes number %d", i),
			Timestamp: ago(time.Duration(i) * time.Hour),
		})
	}

	assert.Len(t, Suggest("meeting", all, params(), 3), 3)
	assert.Len(t, Suggest("meeting", all, params(), 0), 10)
	assert.Len(t, Suggest("meeting", all, params(), -1), 10)
	assert.Len(t, Suggest("meeting", all, params(), 100), 10)
}

func TestSuggest_OrderedByScore(t *testing.T) {
	all := []notes.Note{
		{ID: "weak", Content: "budget travel planning ideas for summer", Timestamp: ago(time.Hour)},
		{ID: "strong", Content: "budget review", Timestamp: ago(time.Hour)},
		{ID: "exact", Content: "notes on the budget review meeting", Timestamp: ago(time.Hour)},
	}
	got := SuggestScored("budget review", all, params(), 0)
	require.Len(t, got, 3)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.Equal(t, "weak", got[2].Note.ID)
}

func TestScore_Components(t *testing.T) {
	all := []notes.Note{
		{ID: "1", Content: "Call the dentist tomorrow morning", Timestamp: ago(time.Hour)},
		{ID: "2", Content: "dentist appointment moved", Timestamp: ago(time.Hour)},
		{ID: "3", Content: "groceries", Timestamp: ago(time.Hour)},
	}

	t.Run("cosine within bounds", func(t *testing.T) {
		for _, s := range Score("dentist tomorrow", all, noRecency()) {
			assert.GreaterOrEqual(t, s.Cosine, 0.0)
			assert.LessOrEqual(t, s.Cosine, 1.0+1e-9)
			assert.Equal(t, s.Cosine, s.Score)
		}
	})

	t.Run("substring boost", func(t *testing.T) {
		scored := Score("tomorrow DENTIST", all, noRecency())
		require.Len(t, scored, 3)
		assert.Equal(t, 0.0, scored[0].Substring)

		scored = Score("the DENTIST tomorrow", all, noRecency())
		assert.Equal(t, 2.0, scored[0].Substring)
		assert.GreaterOrEqual(t, scored[0].Score-scored[0].Cosine, 2.0)
		assert.Equal(t, 0.0, scored[1].Substring)
	})

	t.Run("no overlap scores zero", func(t *testing.T) {
		scored := Score("dentist", all, params())
		require.Len(t, scored, 3)
		assert.Equal(t, 0.0, scored[2].Score)
		assert.Equal(t, 0.0, scored[2].Recency)
	})
}

func TestScore_ZeroNormNote(t *testing.T) {
	all := []notes.Note{
		{ID: "empty", Content: "", Timestamp: ago(time.Hour)},
		{ID: "stop", Content: "the and of it", Timestamp: ago(time.Hour)},
		{ID: "real", Content: "quarterly report", Timestamp: ago(time.Hour)},
	}
	scored := Score("report", all, params())
	require.Len(t, scored, 3)
	assert.Equal(t, 0.0, scored[0].Score)
	assert.Equal(t, 0.0, scored[1].Score)
	assert.False(t, math.IsNaN(scored[1].Cosine))
	assert.Greater(t, scored[2].Score, 0.0)
}

func TestScore_TermFrequencyCounts(t *testing.T) {
	all := []notes.Note{
		{ID: "repeat", Content: "sprint sprint sprint planning"},
		{ID: "once", Content: "sprint planning"},
		{ID: "other", Content: "lunch menu"},
	}
	scored := Score("sprint", all, noRecency())
	require.Len(t, scored, 3)
	assert.Greater(t, scored[0].Cosine, scored[1].Cosine)
}

func TestRecency(t *testing.T) {
	w := DefaultWeights()

	t.Run("newer note ranks first", func(t *testing.T) {
		all := []notes.Note{
			{ID: "old", Content: "team offsite agenda", Timestamp: ago(90 * 24 * time.Hour)},
			{ID: "new", Content: "team offsite agenda", Timestamp: ago(24 * time.Hour)},
		}
		got := Suggest("offsite agenda", all, params(), 0)
		assert.Equal(t, []string{"new", "old"}, noteIDs(got))
	})

	t.Run("decays with age", func(t *testing.T) {
		fresh := RecencyBoost(testNow.UnixMilli(), testNow, w)
		month := RecencyBoost(ago(30*24*time.Hour), testNow, w)
		year := RecencyBoost(ago(365*24*time.Hour), testNow, w)

		assert.InDelta(t, 0.1, fresh, 1e-12)
		assert.InDelta(t, 0.05, month, 1e-12)
		assert.Greater(t, month, year)
		assert.Greater(t, year, 0.0)
	})

	t.Run("future timestamps clamp to now", func(t *testing.T) {
		future := testNow.Add(48 * time.Hour).UnixMilli()
		assert.InDelta(t, 0.1, RecencyBoost(future, testNow, w), 1e-12)
	})

	t.Run("disabled", func(t *testing.T) {
		all := []notes.Note{{ID: "1", Content: "alpha", Timestamp: testNow.UnixMilli()}}
		scored := Score("alpha", all, noRecency())
		require.Len(t, scored, 1)
		assert.Equal(t, 0.0, scored[0].Recency)
	})

	t.Run("zero half life", func(t *testing.T) {
		zero := w
		zero.RecencyHalfLife = 0
		assert.Equal(t, 0.0, RecencyBoost(testNow.UnixMilli(), testNow, zero))
	})
}

func TestSuggest_Deterministic(t *testing.T) {
	var all []notes.Note
	for i := 0; i < 50; i++ {
		all = append(all, notes.Note{
			ID:        fmt.Sprintf("n%02d", i),
			Content:   fmt.Sprintf("release checklist item %d for version %d deploy", i, i%7),
			Timestamp: ago(time.Duration(i%5) * time.Hour),
		})
	}
	first := Suggest("release deploy version 3", all, params(), 20)
	for i := 0; i < 10; i++ {
		assert.Equal(t, noteIDs(first), noteIDs(Suggest("release deploy version 3", all, params(), 20)))
	}
}

func TestRank(t *testing.T) {
	scored := []ScoredNote{
		{Note: notes.Note{ID: "a"}, Score: 0.5},
		{Note: notes.Note{ID: "b"}, Score: 0},
		{Note: notes.Note{ID: "c"}, Score: 2},
		{Note: notes.Note{ID: "d"}, Score: 0.5},
		{Note: notes.Note{ID: "e"}, Score: -1},
	}
	got := Notes(Rank(scored, 0))
	assert.Equal(t, []string{"c", "a", "d"}, noteIDs(got))

	got = Notes(Rank(scored, 1))
	assert.Equal(t, []string{"c"}, noteIDs(got))

	assert.Empty(t, Rank(nil, 5))
}

func TestWeightsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultWeights(), WeightsFromConfig(config.Default().Ranking))

	cfg := config.Default().Ranking
	cfg.SubstringBoost = 4
	cfg.Inline.SentenceMatch = 20
	w := WeightsFromConfig(cfg)
	assert.Equal(t, 4.0, w.SubstringBoost)
	assert.Equal(t, 20.0, w.Inline.SentenceMatch)
}

func BenchmarkSuggest(b *testing.B) {
	all := make([]notes.Note, 1000)
	for i := range all {
		all[i] = notes.Note{
			ID:        fmt.Sprintf("n%d", i),
			Content:   fmt.Sprintf("note %d about project planning, budget review and the weekly sync %d", i, i%13),
			Timestamp: ago(time.Duration(i) * time.Minute),
		}
	}
	p := params()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Suggest("budget review sync 7", all, p, 50)
	}
}

func TestSuggest_UnicodeWhitespace(t *testing.T) {
	all := []notes.Note{
		{ID: "n1", Content: "Buy milk and eggs", Timestamp: ago(time.Hour)},
		{ID: "n2", Content: "Pasted\u00a0from\u00a0docs:\u00a0milk\u00a0eggs\u00a0bread", Timestamp: ago(time.Hour)},
		{ID: "n3", Content: "Finish the quarterly report", Timestamp: ago(time.Hour)},
	}

	got := Suggest("milk\u00a0eggs", all, noRecency(), 50)
	assert.ElementsMatch(t, []string{"n1", "n2"}, noteIDs(got))

	got = Suggest("bread", all, noRecency(), 50)
	assert.Equal(t, []string{"n2"}, noteIDs(got))
}
