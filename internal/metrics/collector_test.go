package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilCollectorRecordsAreNoOps(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordTiming(OpEmbedding, time.Millisecond)
		c.RecordLLMUsage("gemini", time.Millisecond, 10, 5)
		c.RecordProviderSwitch()
	})
}

func TestSnapshotAggregates(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage("gemini", 100*time.Millisecond, 120, 30)
	c.RecordLLMUsage("ollama", 200*time.Millisecond, 80, 20)
	c.RecordProviderSwitch()
	c.RecordTiming(OpMemorySearch, 5*time.Millisecond)

	snap := c.Snapshot()

	assert.Equal(t, int64(1), snap.ProviderSwitches)
	assert.Equal(t, int64(1), snap.ProviderCalls["gemini"])
	assert.Equal(t, int64(1), snap.ProviderCalls["ollama"])
	if assert.NotNil(t, snap.LLMGenerate) {
		assert.Equal(t, int64(2), snap.LLMGenerate.Count)
		assert.Equal(t, int64(200), *snap.LLMGenerate.TotalInputTokens)
	}
	if assert.NotNil(t, snap.MemorySearch) {
		assert.Equal(t, int64(1), snap.MemorySearch.Count)
	}
	assert.Nil(t, snap.Embedding)
}
