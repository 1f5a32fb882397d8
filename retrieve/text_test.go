package retrieve_test

import (
	"testing"

	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"name"}, retrieve.QueryTerms("What's my name?"))
	assert.Equal(t, []string{"favorite", "food"}, retrieve.QueryTerms("What is my favorite food? favorite!"))
	assert.Empty(t, retrieve.QueryTerms("What do I use?"))
}

func TestTextScore(t *testing.T) {
	rec := &memory.Record{Key: "employer", Value: "Sarah works at Tech Corp"}

	assert.Equal(t, 2.0, retrieve.TextScore([]string{"employer"}, rec))
	assert.Equal(t, 1.0, retrieve.TextScore([]string{"tech"}, rec))
	assert.Equal(t, 1.0, retrieve.TextScore([]string{"work"}, rec), "substring of works")
	assert.Equal(t, 0.0, retrieve.TextScore([]string{"editor"}, rec))
}
