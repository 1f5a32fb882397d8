package stringutils_test

import (
	"testing"

	"github.com/habiliai/agentmemory/internal/stringutils"
	"github.com/stretchr/testify/assert"
)

func TestCleanValue(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "null byte",
			input:    "Tech\u0000 Corp",
			expected: "Tech Corp",
		},
		{
			name:     "multiple control characters",
			input:    "VS\u0001\u001f\u007f Code",
			expected: "VS Code",
		},
		{
			name:     "whitespace collapses",
			input:    "  Neo\tvim\n\n editor \r",
			expected: "Neo vim editor",
		},
		{
			name:     "clean value",
			input:    "Sarah works at Tech Corp",
			expected: "Sarah works at Tech Corp",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "only control characters",
			input:    "\u0000\u0080",
			expected: "",
		},
		{
			name:     "C1 control characters",
			input:    "Se\u0080\u009foul",
			expected: "Seoul",
		},
		{
			name:     "invalid utf-8",
			input:    "Caf\xffé",
			expected: "Café",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringutils.CleanValue(tc.input))
		})
	}
}
