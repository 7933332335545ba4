package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dagucloud/rollbuf/internal/service/resource"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useCollector(t *testing.T, c resource.Collector) {
	t.Helper()
	prev := monitorCollector
	monitorCollector = c
	t.Cleanup(func() {
		monitorCollector = prev
	})
}

func countingCollector() resource.Collector {
	var n atomic.Int64
	return resource.CollectorFunc(func(context.Context) (resource.Sample, error) {
		v := float64(n.Add(1))
		return resource.Sample{
			CPU: v, Memory: v * 2, Disk: v * 3, Load: v / 10,
			MemoryTotalBytes: 8 << 30, MemoryUsedBytes: 2 << 30,
			DiskTotalBytes: 100 << 30, DiskUsedBytes: 40 << 30,
		}, nil
	})
}

func TestMonitor_JSON(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	res, err := runCommand(context.Background(), t, Monitor(), "",
		"-c", cfg, "--count", "3", "--interval", "1ms", "-o", "json")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout.String()), &report))

	id, err := uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "1ms", report.Interval)
	assert.Equal(t, 3, report.Samples)

	require.Len(t, report.History.CPU, 3)
	assert.Equal(t, 1.0, report.History.CPU[0].Value)
	assert.Equal(t, 3.0, report.History.CPU[2].Value)
	assert.Equal(t, 6.0, report.History.Memory[2].Value)
	assert.Equal(t, uint64(8<<30), report.History.MemoryTotalBytes)
}

func TestMonitor_YAML(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	res, err := runCommand(context.Background(), t, Monitor(), "",
		"-c", cfg, "--count", "2", "--interval", "1ms", "-o", "yaml")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout.String()), &report))
	assert.Equal(t, 2, report.Samples)
	require.Len(t, report.History.Disk, 2)
	assert.Equal(t, 6.0, report.History.Disk[1].Value)
}

func TestMonitor_Table(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	res, err := runCommand(context.Background(), t, Monitor(), "",
		"-c", cfg, "--count", "2", "--interval", "1ms")
	require.NoError(t, err)

	out := res.stdout.String()
	assert.Contains(t, out, "Run ")
	assert.Contains(t, strings.ToUpper(out), "CPU %")
	// The footer keeps its case so byte units stay readable.
	assert.Contains(t, out, "Latest")
	assert.Contains(t, out, "2.0 GiB / 8.0 GiB")
	assert.Contains(t, out, "40.0 GiB / 100.0 GiB")
}

func TestMonitor_RollingWindow(t *testing.T) {
	useCollector(t, countingCollector())
	// 5ms retention at a 1ms interval keeps 5 slots plus 10 of slack.
	cfg := writeConfig(t, "monitoring:\n  retention: 5ms\n")

	res, err := runCommand(context.Background(), t, Monitor(), "",
		"-c", cfg, "--count", "20", "--interval", "1ms", "-o", "json")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout.String()), &report))
	assert.Equal(t, 20, report.Samples)
	require.Len(t, report.History.CPU, 15)
	assert.Equal(t, 6.0, report.History.CPU[0].Value)
	assert.Equal(t, 20.0, report.History.CPU[14].Value)
}

func TestMonitor_RetentionFlagResizesWindow(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "monitoring:\n  retention: 5ms\n")

	// 2ms retention at a 1ms interval shrinks the window to 2 slots plus 10.
	res, err := runCommand(context.Background(), t, Monitor(), "",
		"-c", cfg, "--count", "20", "--interval", "1ms", "--retention", "2ms", "-o", "json")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout.String()), &report))
	assert.Equal(t, 20, report.Samples)
	require.Len(t, report.History.CPU, 12)
	assert.Equal(t, 9.0, report.History.CPU[0].Value)
	assert.Equal(t, 20.0, report.History.CPU[11].Value)
	assert.Contains(t, res.stderr.String(), "Resource retention changed")
}

func TestMonitor_UntilInterrupted(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := runCommand(ctx, t, Monitor(), "",
		"-c", cfg, "--count", "0", "--interval", "1ms", "-o", "json")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout.String()), &report))
	assert.Positive(t, report.Samples)
	assert.Len(t, report.History.CPU, report.Samples)

	stderr := res.stderr.String()
	assert.Contains(t, stderr, "Resource monitoring service started")
	assert.Contains(t, stderr, "Resource monitoring service stopped")
}

func TestMonitor_CollectError(t *testing.T) {
	errSensor := errors.New("sensor unavailable")
	useCollector(t, resource.CollectorFunc(func(context.Context) (resource.Sample, error) {
		return resource.Sample{}, errSensor
	}))
	cfg := writeConfig(t, "")

	_, err := runCommand(context.Background(), t, Monitor(), "", "-c", cfg, "--count", "1")
	require.ErrorIs(t, err, errSensor)
	assert.Contains(t, err.Error(), "failed to collect sample 1")
}

func TestMonitor_InvalidArgs(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "NegativeCount", args: []string{"--count=-1"}, wantErr: errInvalidCount},
		{name: "NegativeRetention", args: []string{"--retention=-1s"}, wantErr: errInvalidRetention},
		{name: "BadRetention", args: []string{"--retention", "forever"}, wantMsg: `invalid value for --retention: "forever"`},
		{name: "BadOutput", args: []string{"-o", "xml"}, wantErr: errInvalidOutput},
		{name: "BadInterval", args: []string{"--interval", "soon"}, wantMsg: `invalid value for --interval: "soon"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-c", cfg}, tt.args...)
			_, err := runCommand(context.Background(), t, Monitor(), "", args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMonitor_CancelStopsSampling(t *testing.T) {
	useCollector(t, countingCollector())
	cfg := writeConfig(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := runCommand(ctx, t, Monitor(), "",
		"-c", cfg, "--count", "100", "--interval", "1h", "-o", "json")
	require.NoError(t, err)

	var report monitorReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout.String()), &report))
	assert.Equal(t, 1, report.Samples)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{8 << 30, "8.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
