package main

import (
	"regexp"
	"strings"
)

// punctuation mirrors the characters stripped from guesses and titles
// before word-by-word comparison.
const punctuation = ".,/#!$%^&*;:{}=-_`~()"

var parenthetical = regexp.MustCompile(`\s*\(.*?\)\s*`)

// tokenize lowercases text, strips punctuation, and splits it into
// whitespace-delimited word tokens. Empty tokens are dropped.
func tokenize(text string) []string {
	lowered := strings.ToLower(text)

	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, lowered)

	return strings.Fields(cleaned)
}

// stripParenthetical removes any (...) disambiguation segment from a
// candidate title, e.g. "Madonna (chanteuse)" -> "Madonna". Applied only
// to titles, never to user input.
func stripParenthetical(title string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(title, " "))
}

// editDistance computes the Levenshtein distance between two strings:
// the minimum number of single-character insertions, deletions, or
// substitutions required to transform one into the other. Comparison is
// rune-wise, so a dropped accent counts as one edit, not two. Two
// rolling rows are kept instead of the full matrix.
func editDistance(as, bs string) int {
	if as == bs {
		return 0
	}

	a := []rune(as)
	b := []rune(bs)

	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(a)]
}

// wordTolerance is the maximum edit distance allowed between a guessed
// word and the corresponding title word.
const wordTolerance = 1

// matchTitle compares a tokenized guess against a candidate title.
//
// When token counts match, words are compared positionally under the
// per-word tolerance. On a count mismatch, the title's parenthetical
// disambiguation suffix is stripped and the comparison retried; if the
// counts still differ the guess is too imprecise (a single given name
// never matches a full name). Returns nil on a match, otherwise a
// *Rejection with ReasonNeedsPrecision or ReasonMisspelled.
func matchTitle(guessTokens []string, candidateTitle string) error {
	titleTokens := tokenize(candidateTitle)

	if len(guessTokens) == len(titleTokens) {
		return compareTokens(guessTokens, titleTokens)
	}

	cleanTokens := tokenize(stripParenthetical(candidateTitle))
	if len(guessTokens) != len(cleanTokens) {
		return &Rejection{Reason: ReasonNeedsPrecision}
	}

	return compareTokens(guessTokens, cleanTokens)
}

func compareTokens(guess, title []string) error {
	for i := range guess {
		if editDistance(guess[i], title[i]) > wordTolerance {
			return &Rejection{Reason: ReasonMisspelled}
		}
	}

	return nil
}
