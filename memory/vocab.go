package memory

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

var (
	categoryAliases = map[string]Category{
		"preference":    CategoryPreference,
		"preferences":   CategoryPreference,
		"tool":          CategoryTool,
		"tools":         CategoryTool,
		"personal":      CategoryPersonal,
		"personal_info": CategoryPersonal,
		"work":          CategoryWork,
		"work_info":     CategoryWork,
		"other":         CategoryOther,
		"skills":        CategoryOther,
		"goals":         CategoryOther,
		"relationships": CategoryOther,
	}

	keyAliases = map[string]string{
		"full_name":            "name",
		"first_name":           "name",
		"user_name":            "name",
		"company":              "employer",
		"workplace":            "employer",
		"employer_name":        "employer",
		"company_name":         "employer",
		"job":                  "role",
		"job_title":            "role",
		"title":                "role",
		"position":             "role",
		"occupation":           "role",
		"city":                 "location",
		"hometown":             "location",
		"residence":            "location",
		"home":                 "location",
		"ide":                  "editor",
		"code_editor":          "editor",
		"programming_language": "language",
	}

	// KeyVocabulary is the controlled vocabulary offered to the extractor.
	KeyVocabulary = []string{
		"name", "age", "location", "birthday", "family",
		"employer", "role", "team", "project",
		"editor", "language", "framework", "tool", "os",
		"food", "drink", "music", "hobby", "style",
	}

	// categoryCues are lexical hints used to guess the category a question is about.
	categoryCues = []struct {
		category Category
		words    []string
	}{
		{CategoryPersonal, []string{"name", "age", "old", "live", "from", "born", "birthday", "family", "email", "phone", "called"}},
		{CategoryWork, []string{"work", "job", "company", "employer", "team", "project", "role", "office", "boss", "colleague"}},
		{CategoryTool, []string{"tool", "tools", "use", "using", "software", "app", "editor", "ide", "platform", "language", "framework"}},
		{CategoryPreference, []string{"prefer", "like", "favorite", "favourite", "enjoy", "love"}},
	}
)

// ParseCategory maps s onto the closed category set. Unknown values report false.
func ParseCategory(s string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// NormalizeKey lowercases key, folds separators to '_', drops everything else
// outside [a-z0-9_] and maps known aliases onto KeyVocabulary.
func NormalizeKey(key string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	normalized := strings.TrimRight(b.String(), "_")
	if alias, ok := keyAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// InferCategory guesses which category text asks about. The second return
// value is false when no cue matches.
func InferCategory(text string) (Category, bool) {
	tokens := Tokenize(text)
	for _, cue := range categoryCues {
		if lo.Some(tokens, cue.words) {
			return cue.category, true
		}
	}
	return "", false
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
