package retrieve

import (
	"sort"
	"strings"

	"github.com/habiliai/agentmemory/memory"
	"github.com/samber/lo"
)

const (
	keyWeight   = 2
	valueWeight = 1
)

var stopwords = lo.SliceToMap([]string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at", "for", "with", "about", "from",
	"is", "are", "am", "was", "were", "be", "been", "do", "does", "did", "have", "has", "had",
	"what", "whats", "where", "when", "who", "whom", "which", "why", "how",
	"i", "me", "my", "mine", "you", "your", "we", "our", "it", "its", "that", "this", "there",
	"can", "could", "would", "should", "will", "please", "tell", "know", "remember",
	"use", "using", "used", "again",
}, func(w string) (string, struct{}) {
	return w, struct{}{}
})

// QueryTerms lowercases query, splits it on non-alphanumerics and drops
// stopwords and single characters.
func QueryTerms(query string) []string {
	return lo.Uniq(lo.Filter(memory.Tokenize(query), func(t string, _ int) bool {
		_, stop := stopwords[t]
		return !stop && len(t) > 1
	}))
}

// TextScore weighs each term found in the record's key twice as much as one
// found in its value. Substrings count.
func TextScore(terms []string, rec *memory.Record) float64 {
	key := strings.ToLower(rec.Key)
	value := strings.ToLower(rec.Value)

	var score int
	for _, t := range terms {
		if strings.Contains(key, t) {
			score += keyWeight
		}
		if strings.Contains(value, t) {
			score += valueWeight
		}
	}
	return float64(score)
}

// sortByScore orders by score, then the most recently updated record.
func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Record.UpdatedAt.Equal(b.Record.UpdatedAt) {
			return a.Record.UpdatedAt.After(b.Record.UpdatedAt)
		}
		return a.Record.ID < b.Record.ID
	})
}
