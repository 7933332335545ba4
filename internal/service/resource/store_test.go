package resource

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(v float64) Sample {
	return Sample{CPU: v, Memory: v, Disk: v, Load: v}
}

func TestMemoryStore_AddAndGet(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(time.Hour, 10*time.Second)

	// Add distinct values to verify correct metric mapping
	store.Add(Sample{
		CPU: 10.0, Memory: 20.0, Disk: 30.0, Load: 1.5,
		MemoryTotalBytes: 16_000_000_000, MemoryUsedBytes: 4_000_000_000,
		DiskTotalBytes: 500_000_000_000, DiskUsedBytes: 200_000_000_000,
	})
	store.Add(Sample{
		CPU: 15.0, Memory: 25.0, Disk: 35.0, Load: 2.0,
		MemoryTotalBytes: 16_000_000_000, MemoryUsedBytes: 5_000_000_000,
		DiskTotalBytes: 500_000_000_000, DiskUsedBytes: 210_000_000_000,
	})

	history := store.GetHistory(time.Hour)

	require.Len(t, history.CPU, 2)
	require.Len(t, history.Memory, 2)
	require.Len(t, history.Disk, 2)
	require.Len(t, history.Load, 2)

	// Verify ordering
	assert.Equal(t, 10.0, history.CPU[0].Value)
	assert.Equal(t, 15.0, history.CPU[1].Value)

	// Verify correct metric assignment
	assert.Equal(t, 20.0, history.Memory[0].Value)
	assert.Equal(t, 30.0, history.Disk[0].Value)
	assert.Equal(t, 1.5, history.Load[0].Value)

	// Verify absolute values (latest snapshot)
	assert.Equal(t, uint64(16_000_000_000), history.MemoryTotalBytes)
	assert.Equal(t, uint64(5_000_000_000), history.MemoryUsedBytes)
	assert.Equal(t, uint64(500_000_000_000), history.DiskTotalBytes)
	assert.Equal(t, uint64(210_000_000_000), history.DiskUsedBytes)
}

func TestMemoryStore_GetHistoryFiltering(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		store := NewMemoryStore(time.Hour, 10*time.Second)

		store.Add(sample(1.0))

		// Wait 2+ seconds so old point is at least 2 seconds in the past
		time.Sleep(2100 * time.Millisecond)

		store.Add(sample(2.0))

		history := store.GetHistory(time.Minute)
		assert.Len(t, history.CPU, 2)

		historyShort := store.GetHistory(time.Second)
		require.Len(t, historyShort.CPU, 1)
		assert.Equal(t, 2.0, historyShort.CPU[0].Value)
	})
}

func TestMemoryStore_EmptyHistory(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(time.Hour, 10*time.Second)
	history := store.GetHistory(time.Hour)

	assert.Empty(t, history.CPU)
	assert.Empty(t, history.Memory)
	assert.Empty(t, history.Disk)
	assert.Empty(t, history.Load)
}

func TestMemoryStore_GetHistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(time.Hour, 10*time.Second)
	store.Add(sample(1.0))

	history1 := store.GetHistory(time.Hour)
	history2 := store.GetHistory(time.Hour)

	history1.CPU[0].Value = 999.0

	assert.Equal(t, 1.0, history2.CPU[0].Value)
}

func TestNewMemoryStore_Capacity(t *testing.T) {
	t.Parallel()

	// 1 hour retention with 10s interval = 360 points + 10 slack = 370
	store := NewMemoryStore(time.Hour, 10*time.Second)
	assert.Equal(t, 370, store.buffer.Size())

	// Invalid interval defaults to 10s
	store2 := NewMemoryStore(time.Hour, 0)
	assert.Equal(t, 370, store2.buffer.Size())

	// 1 hour retention with 5s interval = 720 points + 10 slack = 730
	store3 := NewMemoryStore(time.Hour, 5*time.Second)
	assert.Equal(t, 730, store3.buffer.Size())
}

func TestMemoryStore_RollsOver(t *testing.T) {
	t.Parallel()

	// 0 retention leaves only the slack slots.
	store := NewMemoryStore(0, time.Second)
	for i := range 25 {
		store.Add(sample(float64(i)))
	}

	assert.Equal(t, bufferSlack, store.Len())
	history := store.GetHistory(time.Hour)
	require.Len(t, history.CPU, bufferSlack)
	assert.Equal(t, 15.0, history.CPU[0].Value)
	assert.Equal(t, 24.0, history.CPU[bufferSlack-1].Value)
}

func TestMemoryStore_SetRetention(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(10*time.Second, time.Second)
	for i := range 30 {
		store.Add(sample(float64(i)))
	}
	require.Equal(t, 20, store.Len())

	// Growing keeps every sample.
	require.NoError(t, store.SetRetention(time.Minute))
	assert.Equal(t, 70, store.buffer.Size())
	assert.Equal(t, 20, store.Len())
	store.Add(sample(30))
	history := store.GetHistory(time.Hour)
	require.Len(t, history.CPU, 21)
	assert.Equal(t, 10.0, history.CPU[0].Value)
	assert.Equal(t, 30.0, history.CPU[20].Value)

	// Shrinking keeps the newest.
	require.NoError(t, store.SetRetention(2*time.Second))
	assert.Equal(t, 12, store.Len())
	history = store.GetHistory(time.Hour)
	assert.Equal(t, 19.0, history.CPU[0].Value)
	assert.Equal(t, 30.0, history.CPU[11].Value)
}
