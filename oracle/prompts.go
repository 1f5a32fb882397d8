package oracle

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const classifyPromptTemplate = `Classify the user's message into exactly one intent.

Intents:
- memory_query: the user asks about something they told you before about themselves
- information_share: the user states a fact about themselves, their work, tools or preferences
- general_chat: greetings, small talk and general questions that are not about the user

Allowed values: {{ .Intents | join ", " }}
Return the intent and your confidence between 0 and 1.

Message: {{ .Utterance | quote }}`

const extractPromptTemplate = `Extract durable facts the user states about themselves.

Categories (use exactly one of): {{ .Categories | join ", " }}
Preferred keys: {{ .Keys | join ", " }}

Rules:
- Only extract what the user explicitly says about themselves. Never guess.
- key is a short snake_case label; reuse a preferred key whenever one fits.
- value is the fact itself, as short as possible while keeping the user's wording.
- confidence is between 0 and 1.
- Return an empty list when the message carries no fact about the user.

Message: {{ .Utterance | quote }}`

const synthesizePromptTemplate = `Answer the question using only the memory records below.

Question: {{ .Query | quote }}

Records:
{{- range .Records }}
- id={{ .ID }} [{{ .Category }}/{{ .Key }}] {{ .Value | quote }}
{{- end }}

Rules:
- answer must be the shortest span copied from one record value that answers the question.
- record_ids lists the ids the answer was copied from.
- Set found to false and leave answer empty when no record answers the question.`

const chatPromptTemplate = `You are a friendly assistant with memory of the user. Reply briefly and helpfully.
Do not claim to remember anything that is not in this message.

Message: {{ .Utterance | quote }}`

var prompts map[TaskKind]*template.Template

func init() {
	sources := map[TaskKind]string{
		TaskClassify:   classifyPromptTemplate,
		TaskExtract:    extractPromptTemplate,
		TaskSynthesize: synthesizePromptTemplate,
		TaskChat:       chatPromptTemplate,
	}

	prompts = make(map[TaskKind]*template.Template, len(sources))
	for kind, src := range sources {
		tmpl, err := template.New(string(kind) + "Prompt").
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=error").
			Parse(src)
		if err != nil {
			panic(fmt.Sprintf("failed to parse %s template: %v", kind, err))
		}
		prompts[kind] = tmpl
	}
}

// RenderPrompt renders the prompt for kind with payload.
func RenderPrompt(kind TaskKind, payload any) (string, error) {
	tmpl, ok := prompts[kind]
	if !ok {
		return "", fmt.Errorf("unknown task kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
