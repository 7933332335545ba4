package resource

import (
	"sort"
	"sync"
	"time"

	"github.com/dagucloud/rollbuf/internal/rollbuf"
)

const (
	defaultStoreInterval = 10 * time.Second
	// extra slots so a full retention window survives ticker jitter
	bufferSlack = 10
)

// MetricPoint represents a single data point for a metric
type MetricPoint struct {
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
	Value     float64 `json:"value" yaml:"value"`
}

// Sample is one reading of every metric.
type Sample struct {
	CPU    float64
	Memory float64
	Disk   float64
	Load   float64

	MemoryTotalBytes uint64
	MemoryUsedBytes  uint64
	DiskTotalBytes   uint64
	DiskUsedBytes    uint64
}

// ResourceHistory holds the history of resource usage
type ResourceHistory struct {
	CPU    []MetricPoint `json:"cpu" yaml:"cpu"`
	Memory []MetricPoint `json:"memory" yaml:"memory"`
	Disk   []MetricPoint `json:"disk" yaml:"disk"`
	Load   []MetricPoint `json:"load" yaml:"load"`

	// Absolute values from the latest sample
	MemoryTotalBytes uint64 `json:"memoryTotalBytes" yaml:"memoryTotalBytes"`
	MemoryUsedBytes  uint64 `json:"memoryUsedBytes" yaml:"memoryUsedBytes"`
	DiskTotalBytes   uint64 `json:"diskTotalBytes" yaml:"diskTotalBytes"`
	DiskUsedBytes    uint64 `json:"diskUsedBytes" yaml:"diskUsedBytes"`
}

// Store defines the interface for storing resource metrics
type Store interface {
	Add(s Sample)
	GetHistory(duration time.Duration) *ResourceHistory
	SetRetention(retention time.Duration) error
}

type entry struct {
	timestamp int64
	sample    Sample
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps samples for the retention window in a rolling buffer.
// The oldest sample is dropped once the window is full.
type MemoryStore struct {
	mu       sync.RWMutex
	buffer   *rollbuf.Buffer[entry]
	interval time.Duration
}

// NewMemoryStore creates a MemoryStore sized for retention at the given
// sampling interval.
func NewMemoryStore(retention, interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = defaultStoreInterval
	}
	// slots is never negative, so New cannot fail.
	buffer, _ := rollbuf.New[entry](slots(retention, interval))
	return &MemoryStore{
		buffer:   buffer,
		interval: interval,
	}
}

func slots(retention, interval time.Duration) int {
	return max(0, int(retention/interval)) + bufferSlack
}

// Add records a sample taken now.
func (s *MemoryStore) Add(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Add(entry{timestamp: time.Now().Unix(), sample: sample})
}

// SetRetention resizes the window. Shrinking drops the oldest samples.
func (s *MemoryStore) SetRetention(retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer.Resize(slots(retention, s.interval))
}

// Len returns the number of samples currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.buffer.Count()
}

// GetHistory returns the samples taken within duration, oldest first.
func (s *MemoryStore) GetHistory(duration time.Duration) *ResourceHistory {
	s.mu.RLock()
	entries := s.buffer.Items()
	s.mu.RUnlock()

	history := &ResourceHistory{}
	if len(entries) == 0 {
		return history
	}

	latest := entries[len(entries)-1].sample
	history.MemoryTotalBytes = latest.MemoryTotalBytes
	history.MemoryUsedBytes = latest.MemoryUsedBytes
	history.DiskTotalBytes = latest.DiskTotalBytes
	history.DiskUsedBytes = latest.DiskUsedBytes

	// Entries are in insertion order, so timestamps never decrease.
	cutoff := time.Now().Add(-duration).Unix()
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].timestamp >= cutoff
	})
	if idx == len(entries) {
		return history
	}

	n := len(entries) - idx
	history.CPU = make([]MetricPoint, 0, n)
	history.Memory = make([]MetricPoint, 0, n)
	history.Disk = make([]MetricPoint, 0, n)
	history.Load = make([]MetricPoint, 0, n)
	for _, e := range entries[idx:] {
		history.CPU = append(history.CPU, MetricPoint{Timestamp: e.timestamp, Value: e.sample.CPU})
		history.Memory = append(history.Memory, MetricPoint{Timestamp: e.timestamp, Value: e.sample.Memory})
		history.Disk = append(history.Disk, MetricPoint{Timestamp: e.timestamp, Value: e.sample.Disk})
		history.Load = append(history.Load, MetricPoint{Timestamp: e.timestamp, Value: e.sample.Load})
	}
	return history
}
