package core

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"testing"
	"tracestats/clock"
)

func TestAccumulatorTwoTasks(t *testing.T) {
	acc := NewAccumulator(DefaultConfig(), nil)
	a, b := TaskContext(1), TaskContext(2)

	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 0, 3))
	require.NoError(t, acc.OnSwitch(b, 10, 4))
	require.NoError(t, acc.OnSwitch(a, 25, 3))
	require.NoError(t, acc.Close(30))

	recordA, ok := acc.Record(a)
	require.True(t, ok)
	recordB, ok := acc.Record(b)
	require.True(t, ok)
	assert.Equal(t, uint64(15), recordA.TotalRuntime())
	assert.Equal(t, uint64(15), recordB.TotalRuntime())
	assert.Equal(t, uint64(2), recordA.SwitchCount())
	assert.Equal(t, uint64(1), recordB.SwitchCount())
	assert.Equal(t, []uint64{10, 5}, recordA.Samples().InMemory())
	assert.Equal(t, uint64(0), acc.Unattributed())
}

func TestAccumulatorIdempotentSwitch(t *testing.T) {
	acc := NewAccumulator(DefaultConfig(), nil)
	a := TaskContext(1)
	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 5, 1))
	require.NoError(t, acc.OnSwitch(a, 8, 2))
	require.NoError(t, acc.Close(10))

	record, _ := acc.Record(a)
	assert.Equal(t, uint64(1), record.SwitchCount())
	assert.Equal(t, []Priority{1}, record.Priorities())
	assert.Equal(t, uint64(5), record.TotalRuntime())
	assert.Equal(t, uint64(5), acc.Unattributed())
}

func TestAccumulatorTaskAndISRAreDistinct(t *testing.T) {
	acc := NewAccumulator(DefaultConfig(), nil)
	acc.Start(0)
	require.NoError(t, acc.OnSwitch(TaskContext(7), 0, 1))
	require.NoError(t, acc.OnSwitch(ISRContext(7), 4, 9))
	require.NoError(t, acc.Close(6))

	records := acc.Records()
	require.Len(t, records, 2)
	assert.Equal(t, TaskContext(7), records[0].ID)
	assert.Equal(t, uint64(4), records[0].TotalRuntime())
	assert.Equal(t, ISRContext(7), records[1].ID)
	assert.Equal(t, uint64(2), records[1].TotalRuntime())
}

func TestAccumulatorBackwards(t *testing.T) {
	acc := NewAccumulator(DefaultConfig(), nil)
	a, b := TaskContext(1), TaskContext(2)
	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 10, 1))
	err := acc.OnSwitch(b, 5, 1)
	assert.ErrorIs(t, err, ErrTimestampBackwards)
	assert.Equal(t, b, acc.Active())

	record, _ := acc.Record(a)
	assert.Equal(t, uint64(0), record.TotalRuntime())
}

func TestAccumulatorRuntimePlusIdleIsElapsed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	contexts := []ContextID{Idle, TaskContext(1), TaskContext(2), ISRContext(1), ISRContext(3)}

	for trial := 0; trial < 20; trial++ {
		acc := NewAccumulator(DefaultConfig(), nil)
		origin := clock.Tick(rng.Intn(1000))
		acc.Start(origin)
		ts := origin
		for i := 0; i < 200; i++ {
			ts += clock.Tick(rng.Intn(50))
			target := contexts[rng.Intn(len(contexts))]
			require.NoError(t, acc.OnSwitch(target, ts, Priority(rng.Intn(4))))
		}
		ts += clock.Tick(rng.Intn(50))
		require.NoError(t, acc.Close(ts))

		sum := acc.Unattributed()
		for _, record := range acc.Records() {
			sum += record.TotalRuntime()
		}
		assert.Equal(t, uint64(ts-origin), sum)
	}
}

func TestAccumulatorResetActive(t *testing.T) {
	acc := NewAccumulator(DefaultConfig(), nil)
	a := TaskContext(1)
	acc.Start(100)
	require.NoError(t, acc.OnSwitch(a, 100, 1))
	require.NoError(t, acc.Close(150))
	acc.ResetActive()
	assert.Equal(t, Idle, acc.Active())
	assert.False(t, acc.Started())

	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 10, 1))
	require.NoError(t, acc.Close(30))

	record, _ := acc.Record(a)
	assert.Equal(t, uint64(70), record.TotalRuntime())
	assert.Equal(t, uint64(2), record.SwitchCount())
	assert.Equal(t, uint64(10), acc.Unattributed())
}

func TestAccumulatorResetSamples(t *testing.T) {
	config := DefaultConfig()
	config.MaxIntervalSamples = 1
	acc := NewAccumulator(config, nil)
	a := TaskContext(1)
	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 0, 1))
	require.NoError(t, acc.OnSwitch(Idle, 5, 0))
	require.NoError(t, acc.OnSwitch(a, 6, 1))
	require.NoError(t, acc.Close(9))

	record, _ := acc.Record(a)
	assert.Equal(t, uint64(1), record.Samples().Retained())
	assert.Equal(t, uint64(1), record.Samples().Truncated())

	require.NoError(t, acc.ResetSamples())
	assert.Equal(t, uint64(0), record.Samples().Retained())
	assert.Equal(t, uint64(8), record.TotalRuntime())
	assert.Equal(t, uint64(2), record.Durations().Count())
}
