package ranker

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/config"
)

// Weights holds the boost constants applied on top of cosine similarity.
type Weights struct {
	// SubstringBoost is added when the note contains the whole query verbatim
	// (case-insensitive).
	SubstringBoost float64
	// RecencyEnabled toggles the recency boost. With it off the scorer is the
	// plain TF-IDF + substring variant.
	RecencyEnabled bool
	// RecencyWeight is the largest boost a brand-new note can receive.
	RecencyWeight float64
	// RecencyHalfLife is the age at which the recency boost has halved.
	RecencyHalfLife time.Duration
	Inline          InlineWeights
}

// InlineWeights are the additive weights of the inline suggestion mode.
type InlineWeights struct {
	TokenMatch    float64 // per sentence token present in the note
	WordToken     float64 // the note's tokens contain the word under the cursor
	SentenceMatch float64 // the note contains the whole sentence
	WordMatch     float64 // the note contains the word (only without a sentence match)
}

// DefaultWeights returns the weights the extension shipped with.
func DefaultWeights() Weights {
	return Weights{
		SubstringBoost:  2.0,
		RecencyEnabled:  true,
		RecencyWeight:   0.1,
		RecencyHalfLife: 30 * 24 * time.Hour,
		Inline: InlineWeights{
			TokenMatch:    1,
			WordToken:     3,
			SentenceMatch: 10,
			WordMatch:     5,
		},
	}
}

// WeightsFromConfig maps the ranking section of the service config.
func WeightsFromConfig(cfg config.RankingConfig) Weights {
	return Weights{
		SubstringBoost:  cfg.SubstringBoost,
		RecencyEnabled:  cfg.RecencyEnabled,
		RecencyWeight:   cfg.RecencyWeight,
		RecencyHalfLife: cfg.RecencyHalfLife,
		Inline: InlineWeights{
			TokenMatch:    cfg.Inline.TokenMatch,
			WordToken:     cfg.Inline.WordToken,
			SentenceMatch: cfg.Inline.SentenceMatch,
			WordMatch:     cfg.Inline.WordMatch,
		},
	}
}
