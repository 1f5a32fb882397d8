package extract

import (
	"regexp"
	"strings"

	"github.com/habiliai/agentmemory/internal/stringutils"
	"github.com/habiliai/agentmemory/memory"
)

const patternConfidence = 0.6

// valueSpan stops a captured value at the end of its clause.
const valueSpan = `([^,.!?;]+)`

type pattern struct {
	re       *regexp.Regexp
	category memory.Category
	// key is fixed unless keyGroup names the capture holding it
	key      string
	keyGroup int
	valGroup int
}

var patterns = []pattern{
	{re: regexp.MustCompile(`(?i)\bmy name is ` + valueSpan), category: memory.CategoryPersonal, key: "name", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bi work (?:at|for) ` + valueSpan), category: memory.CategoryWork, key: "employer", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bi work as (?:an? )?` + valueSpan), category: memory.CategoryWork, key: "role", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bi(?: am|'m|’m) an? ` + valueSpan), category: memory.CategoryWork, key: "role", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bi live in ` + valueSpan), category: memory.CategoryPersonal, key: "location", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bi use ` + valueSpan), category: memory.CategoryTool, key: "tool", valGroup: 1},
	{re: regexp.MustCompile(`(?i)\bmy favou?rite ([a-z ]+?) is ` + valueSpan), category: memory.CategoryPreference, keyGroup: 1, valGroup: 2},
	{re: regexp.MustCompile(`(?i)\bi prefer ` + valueSpan), category: memory.CategoryPreference, key: "preference", valGroup: 1},
}

// MatchPatterns extracts candidates with a small set of high-precision
// first-person patterns. It is the extractor's offline fallback.
func MatchPatterns(utterance string) []memory.Candidate {
	var candidates []memory.Candidate
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}

		key := p.key
		if p.keyGroup > 0 {
			key = memory.NormalizeKey(m[p.keyGroup])
		}
		value := trimValue(m[p.valGroup])
		if key == "" || value == "" {
			continue
		}

		candidates = append(candidates, memory.Candidate{
			Category:   p.category,
			Key:        key,
			Value:      value,
			Confidence: patternConfidence,
		})
	}
	return candidates
}

// trimValue drops a trailing clause joined with "and" or "but".
func trimValue(v string) string {
	v = strings.TrimSpace(v)
	for _, sep := range []string{" and ", " but "} {
		if i := strings.Index(strings.ToLower(v), sep); i > 0 {
			v = v[:i]
		}
	}
	return stringutils.CleanValue(v)
}
