package extract_test

import (
	"slices"
	"testing"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/extract"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/habiliai/agentmemory/oracle/oracletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIsLazyAndSingleUse(t *testing.T) {
	o := oracletest.NewScripted(map[oracle.TaskKind]string{
		oracle.TaskExtract: `{"memories":[{"category":"personal","key":"name","value":"Sarah","confidence":0.95}]}`,
	})
	e := extract.NewExtractor(o, config.NewExtractConfig(), mylog.Discard())

	seq := e.Extract(t.Context(), "My name is Sarah", "alice")
	assert.Equal(t, 0, o.Calls(oracle.TaskExtract), "nothing runs before iteration")

	first := slices.Collect(seq)
	require.Len(t, first, 1)
	assert.Equal(t, memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.95}, first[0])
	assert.Equal(t, 1, o.Calls(oracle.TaskExtract))

	assert.Empty(t, slices.Collect(seq))
	assert.Equal(t, 1, o.Calls(oracle.TaskExtract))

	payload := o.Payloads(oracle.TaskExtract)[0].(oracle.ExtractPayload)
	assert.Contains(t, payload.Categories, "preference")
	assert.Contains(t, payload.Keys, "employer")
}

func TestExtractValidatesCandidates(t *testing.T) {
	o := oracletest.NewScripted(map[oracle.TaskKind]string{
		oracle.TaskExtract: `{"memories":[
			{"category":"tools","key":"IDE","value":"  VS Code ","confidence":1.7},
			{"category":"work_info","key":"Company Name","value":"Tech Corp","confidence":0.8},
			{"category":"mood","key":"feeling","value":"happy","confidence":0.9},
			{"category":"personal","key":"name","value":"   ","confidence":0.9},
			{"category":"personal","key":"!!!","value":"x","confidence":0.9},
			{"category":"preference","key":"drink","value":"tea","confidence":0.3}
		]}`,
	})
	e := extract.NewExtractor(o, config.NewExtractConfig(), mylog.Discard())

	got := slices.Collect(e.Extract(t.Context(), "I code in VS Code at Tech Corp", "alice"))
	assert.Equal(t, []memory.Candidate{
		{Category: memory.CategoryTool, Key: "editor", Value: "VS Code", Confidence: 1},
		{Category: memory.CategoryWork, Key: "employer", Value: "Tech Corp", Confidence: 0.8},
	}, got)
}

func TestExtractMalformedYieldsNothing(t *testing.T) {
	for _, raw := range []string{``, `{"memories":`, `{"memories":"Sarah"}`} {
		o := oracletest.NewScripted(map[oracle.TaskKind]string{oracle.TaskExtract: raw})
		e := extract.NewExtractor(o, config.NewExtractConfig(), mylog.Discard())
		assert.Empty(t, slices.Collect(e.Extract(t.Context(), "My name is Sarah", "alice")), raw)
	}
}

func TestExtractUnavailableFallsBackToPatterns(t *testing.T) {
	e := extract.NewExtractor(oracletest.Unavailable(), config.NewExtractConfig(), mylog.Discard())
	got := slices.Collect(e.Extract(t.Context(), "My name is Sarah and I work at Tech Corp.", "alice"))
	assert.ElementsMatch(t, []memory.Candidate{
		{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.6},
		{Category: memory.CategoryWork, Key: "employer", Value: "Tech Corp", Confidence: 0.6},
	}, got)

	conf := config.NewExtractConfig()
	conf.PatternFallback = false
	e = extract.NewExtractor(oracletest.Unavailable(), conf, mylog.Discard())
	assert.Empty(t, slices.Collect(e.Extract(t.Context(), "My name is Sarah", "alice")))
}

func TestExtractStopsEarly(t *testing.T) {
	o := oracletest.NewScripted(map[oracle.TaskKind]string{
		oracle.TaskExtract: `{"memories":[
			{"category":"personal","key":"name","value":"Sarah","confidence":0.9},
			{"category":"personal","key":"location","value":"Seoul","confidence":0.9}
		]}`,
	})
	e := extract.NewExtractor(o, config.NewExtractConfig(), mylog.Discard())

	var n int
	for range e.Extract(t.Context(), "I'm Sarah from Seoul", "alice") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
