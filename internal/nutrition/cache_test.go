package nutrition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisCacheDisabled(t *testing.T) {
	c := newAnalysisCache(0, 10)
	assert.Nil(t, c)

	c.put(1, &FoodAnalysis{Name: "x"})
	_, ok := c.get(1)
	assert.False(t, ok)
	assert.Zero(t, c.len())
}

func TestAnalysisCacheExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newAnalysisCache(time.Minute, 10)
	c.now = func() time.Time { return now }

	c.put(1, &FoodAnalysis{Name: "Борщ"})
	got, ok := c.get(1)
	require.True(t, ok)
	assert.Equal(t, "Борщ", got.Name)

	now = now.Add(2 * time.Minute)
	_, ok = c.get(1)
	assert.False(t, ok)
}

func TestAnalysisCacheEvictsOldest(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newAnalysisCache(time.Hour, 2)
	c.now = func() time.Time { return now }

	c.put(1, &FoodAnalysis{Name: "a"})
	now = now.Add(time.Second)
	c.put(2, &FoodAnalysis{Name: "b"})
	now = now.Add(time.Second)
	c.put(3, &FoodAnalysis{Name: "c"})

	assert.Equal(t, 2, c.len())
	_, ok := c.get(1)
	assert.False(t, ok)
	_, ok = c.get(3)
	assert.True(t, ok)
}

func TestFingerprintSeparatesKinds(t *testing.T) {
	assert.Equal(t, fingerprint("text", []byte("суп")), fingerprint("text", []byte("суп")))
	assert.NotEqual(t, fingerprint("text", []byte("суп")), fingerprint("photo", []byte("суп")))
}
