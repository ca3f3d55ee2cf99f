// Package tokenizer normalises free text into the terms the suggestion
// ranker works with. It lower-cases input, strips everything that is not a
// word character or whitespace, splits on whitespace, and drops single
// characters and stop-words. There is no stemming.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"i": {}, "a": {}, "an": {}, "the": {}, "is": {}, "am": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "of": {}, "on": {},
	"to": {}, "with": {}, "and": {}, "but": {}, "or": {}, "so": {},
	"if": {}, "about": {}, "at": {}, "it": {}, "my": {}, "me": {},
	"you": {}, "your": {},
}

// Set is an unordered collection of distinct terms.
type Set map[string]struct{}

// Has reports whether term is in the set.
func (s Set) Has(term string) bool {
	_, ok := s[term]
	return ok
}

// Terms returns every normalised term of text in order of appearance,
// duplicates included.
func Terms(text string) []string {
	if text == "" {
		return nil
	}
	words := strings.Fields(strings.Map(normalizeRune, strings.ToLower(text)))
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if IsStopword(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// Tokenize returns the distinct terms of text. Empty text yields an empty set.
func Tokenize(text string) Set {
	terms := Terms(text)
	set := make(Set, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	return set
}

// TermFrequencies counts how often each term occurs in text.
func TermFrequencies(text string) map[string]int {
	terms := Terms(text)
	freqs := make(map[string]int, len(terms))
	for _, term := range terms {
		freqs[term]++
	}
	return freqs
}

// normalizeRune keeps ASCII word characters, turns every whitespace rune
// (NBSP, ideographic space, line and paragraph separators, BOM included)
// into a plain space and drops everything else.
func normalizeRune(r rune) rune {
	switch {
	case r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)):
		return r
	case isSpace(r):
		return ' '
	default:
		return -1
	}
}

func isSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return r == '\ufeff' || unicode.IsSpace(r) || unicode.Is(unicode.Z, r)
}

// IsStopword reports whether word is filtered as a function word.
// word must already be lower-cased.
func IsStopword(word string) bool {
	_, ok := stopWords[word]
	return ok
}
