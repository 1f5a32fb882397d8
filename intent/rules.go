package intent

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var (
	greetings = []string{
		"hi", "hello", "hey", "hi there", "hello there", "hey there",
		"how are you", "good morning", "good afternoon", "good evening",
	}

	personalQuestionPhrases = []string{
		"what do i", "what am i", "where do i", "how do i", "what is my", "what's my",
		"where is my", "who am i", "what tools do i", "what tool do i",
		"what software do i", "what do i use", "what do i prefer",
		"do you remember", "do you know my",
	}

	generalPhrases = []string{
		"what is good", "what are good", "how to", "what's the weather",
		"tell me about", "what should i",
	}

	sharePhrases = []string{
		"my name is", "i am", "i'm", "i work", "i live", "i prefer", "i like", "i love", "i use",
	}

	whWords      = []string{"what", "what's", "where", "where's", "when", "who", "who's", "whom", "whose", "which", "why", "how"}
	auxiliaries  = []string{"do", "does", "did", "is", "are", "am", "was", "were", "can", "could", "will", "would", "should", "have", "has"}
	firstPersons = []string{"i", "my", "me", "mine", "i'm"}

	whichDoIPattern = regexp.MustCompile(`\bwhich\b.*\bdo i\b`)
	myIsPattern     = regexp.MustCompile(`\bmy(?: [a-z0-9']+){1,3} is\b`)
)

// ClassifyRules classifies utterance with deterministic lexical rules. The
// first rule that matches decides.
func ClassifyRules(utterance string) Result {
	text := normalize(utterance)
	if text == "" {
		return rules(GeneralChat, 0.1)
	}
	if IsGreeting(utterance) {
		return rules(GeneralChat, 0.9)
	}
	if containsPhrase(text, personalQuestionPhrases) || whichDoIPattern.MatchString(text) {
		return rules(MemoryQuery, 0.85)
	}
	if containsPhrase(text, generalPhrases) {
		return rules(GeneralChat, 0.8)
	}

	question := IsQuestion(utterance)
	if !question && (containsPhrase(text, sharePhrases) || myIsPattern.MatchString(text)) {
		return rules(InformationShare, 0.8)
	}

	tokens := strings.Fields(text)
	if question && slices.ContainsFunc(tokens, isFirstPerson) {
		return rules(MemoryQuery, 0.7)
	}
	if isFirstPerson(tokens[0]) {
		return rules(InformationShare, 0.6)
	}
	return rules(GeneralChat, 0.5)
}

// IsGreeting reports whether utterance is nothing but a greeting.
func IsGreeting(utterance string) bool {
	return slices.Contains(greetings, normalize(utterance))
}

// IsQuestion reports whether utterance ends with '?' or opens with a
// wh-word or an auxiliary verb.
func IsQuestion(utterance string) bool {
	if strings.HasSuffix(strings.TrimSpace(utterance), "?") {
		return true
	}
	tokens := strings.Fields(normalize(utterance))
	if len(tokens) == 0 {
		return false
	}
	return slices.Contains(whWords, tokens[0]) || slices.Contains(auxiliaries, tokens[0])
}

// IsWhQuestion reports whether utterance opens with a wh-word.
func IsWhQuestion(utterance string) bool {
	tokens := strings.Fields(normalize(utterance))
	return len(tokens) > 0 && slices.Contains(whWords, tokens[0])
}

func rules(i Intent, confidence float64) Result {
	return Result{Intent: i, Confidence: confidence, Source: SourceRules}
}

func isFirstPerson(token string) bool {
	return slices.Contains(firstPersons, token)
}

// containsPhrase matches whole words only, so "hi am" never matches "i am".
func containsPhrase(text string, phrases []string) bool {
	padded := " " + text + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases s, keeps letters, digits and apostrophes, and
// collapses everything else into single spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "’", "'")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for i, f := range fields {
		fields[i] = strings.Trim(f, "'")
	}
	fields = slices.DeleteFunc(fields, func(f string) bool { return f == "" })
	return strings.Join(fields, " ")
}
