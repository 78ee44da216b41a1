package semanticlayer

import "sort"

// Misspelling pairs an unknown word with the known words closest to it.
type Misspelling struct {
	Word         string
	SimilarWords []string
}

// maxSuggestionDistance is the edit distance beyond which a known word is
// not considered a plausible correction.
const maxSuggestionDistance = 3

// findMisspellings returns, for every target absent from words, the topK
// known words within editing distance. Targets that match exactly are
// skipped.
func findMisspellings(targets, words []string, topK int) []Misspelling {
	known := make(map[string]struct{}, len(words))
	for _, w := range words {
		known[w] = struct{}{}
	}

	var misspellings []Misspelling
	for _, target := range targets {
		if _, ok := known[target]; ok {
			continue
		}
		type candidate struct {
			word     string
			distance int
		}
		candidates := make([]candidate, 0, len(words))
		for _, w := range words {
			if d := editDistance(target, w); d <= maxSuggestionDistance {
				candidates = append(candidates, candidate{word: w, distance: d})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].distance < candidates[j].distance
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		similar := make([]string, 0, len(candidates))
		for _, c := range candidates {
			similar = append(similar, c.word)
		}
		misspellings = append(misspellings, Misspelling{Word: target, SimilarWords: similar})
	}
	return misspellings
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
