package answer

import (
	"strings"

	"github.com/habiliai/agentmemory/memory"
	"github.com/samber/lo"
)

var fillerWords = lo.SliceToMap([]string{
	"a", "an", "the", "is", "are", "at", "in", "on", "of", "to", "for", "and", "or",
	"you", "your", "i", "my", "it", "s",
}, func(w string) (string, struct{}) {
	return w, struct{}{}
})

// Grounded reports whether answer can be read off value: either its
// normalized form occurs in value as whole words, or at least minOverlap of
// its content words do.
func Grounded(answer, value string, minOverlap float64) bool {
	answerTokens := memory.Tokenize(answer)
	if len(answerTokens) == 0 {
		return false
	}
	valueTokens := memory.Tokenize(value)

	if strings.Contains(" "+strings.Join(valueTokens, " ")+" ", " "+strings.Join(answerTokens, " ")+" ") {
		return true
	}

	content := lo.Filter(answerTokens, func(t string, _ int) bool {
		_, filler := fillerWords[t]
		return !filler
	})
	if len(content) == 0 {
		return false
	}
	valueSet := lo.SliceToMap(valueTokens, func(t string) (string, struct{}) {
		return t, struct{}{}
	})
	hits := lo.CountBy(content, func(t string) bool {
		_, ok := valueSet[t]
		return ok
	})
	return float64(hits)/float64(len(content)) >= minOverlap
}
