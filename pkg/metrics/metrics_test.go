package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyTrackerQuantiles(t *testing.T) {
	tracker := NewLatencyTracker(0.01)

	for i := 1; i <= 100; i++ {
		tracker.Record(OpPersist, time.Duration(i)*time.Millisecond)
	}

	stats, err := tracker.GetStats(OpPersist)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.Count)
	assert.InDelta(t, 1.0, stats.Min, 0.05)
	assert.InDelta(t, 50.0, stats.P50, 1.5)
	assert.InDelta(t, 90.0, stats.P90, 1.5)
	assert.InDelta(t, 100.0, stats.Max, 1.5)
}

func TestLatencyTrackerUnknownOperation(t *testing.T) {
	tracker := NewLatencyTracker(0.01)
	_, err := tracker.GetStats(OpReload)
	require.Error(t, err)
}

func TestLatencyTrackerRecordFunc(t *testing.T) {
	tracker := NewLatencyTracker(0.01)
	boom := errors.New("boom")

	err := tracker.RecordFunc(OpLoad, func() error {
		time.Sleep(10 * time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)

	stats, err := tracker.GetStats(OpLoad)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)
	assert.GreaterOrEqual(t, stats.Min, 9.0)
}

func TestNilTrackerRunsFunc(t *testing.T) {
	var tracker *LatencyTracker
	called := false
	require.NoError(t, tracker.RecordFunc(OpRemove, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestGetAllStatsSorted(t *testing.T) {
	tracker := NewLatencyTracker(0.01)
	tracker.Record(OpSweep, time.Millisecond)
	tracker.Record(OpLoad, time.Millisecond)
	tracker.Record(OpPersist, time.Millisecond)

	var ops []string
	for _, s := range tracker.GetAllStats() {
		ops = append(ops, s.Operation)
	}
	assert.Equal(t, []string{OpLoad, OpPersist, OpSweep}, ops)
}

func TestStatsString(t *testing.T) {
	stats := Stats{
		Operation: "persist",
		Count:     100,
		Min:       1.5,
		P50:       10.2,
		P90:       50.7,
		P99:       99.1,
		Max:       120.5,
	}
	assert.Equal(t,
		"  persist (n=100): min=1.50ms p50=10.20ms p90=50.70ms p99=99.10ms max=120.50ms",
		stats.String())
	assert.Equal(t, "  reload: no data", Stats{Operation: "reload"}.String())
}

func BenchmarkLatencyTrackerRecord(b *testing.B) {
	tracker := NewLatencyTracker(0.01)
	duration := 10 * time.Millisecond

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tracker.Record(OpPersist, duration)
	}
}
