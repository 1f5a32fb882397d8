package memory_test

import (
	"testing"

	"github.com/habiliai/agentmemory/memory"
	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want memory.Category
		ok   bool
	}{
		{"personal", memory.CategoryPersonal, true},
		{"Personal_Info", memory.CategoryPersonal, true},
		{"tools", memory.CategoryTool, true},
		{" preferences ", memory.CategoryPreference, true},
		{"work_info", memory.CategoryWork, true},
		{"goals", memory.CategoryOther, true},
		{"weather", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := memory.ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"name":                 "name",
		"Full Name":            "name",
		"job-title":            "role",
		"Company":              "employer",
		"favorite  drink":      "favorite_drink",
		"IDE":                  "editor",
		"__city__":             "location",
		"prog.language":        "prog_language",
		"emoji 🙂 key":          "emoji_key",
		"   ":                  "",
		"programming_language": "language",
	}
	for in, want := range tests {
		assert.Equal(t, want, memory.NormalizeKey(in), in)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		query string
		want  memory.Category
		ok    bool
	}{
		{"What is my name?", memory.CategoryPersonal, true},
		{"Where do I work?", memory.CategoryWork, true},
		{"What tool do I use?", memory.CategoryTool, true},
		{"What's my favorite food?", memory.CategoryPreference, true},
		{"Tell me a joke", "", false},
	}
	for _, tt := range tests {
		got, ok := memory.InferCategory(tt.query)
		assert.Equal(t, tt.ok, ok, tt.query)
		assert.Equal(t, tt.want, got, tt.query)
	}
}
