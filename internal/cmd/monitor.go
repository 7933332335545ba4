package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dagucloud/rollbuf/internal/logger"
	"github.com/dagucloud/rollbuf/internal/logger/tag"
	"github.com/dagucloud/rollbuf/internal/service/resource"
	"github.com/goccy/go-yaml"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	errInvalidCount     = errors.New("--count must not be negative")
	errInvalidRetention = errors.New("--retention must not be negative")
	errInvalidOutput    = errors.New("--output must be one of table, json or yaml")
)

// monitorCollector overrides the host collector. Used by tests.
var monitorCollector resource.Collector

func Monitor() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "monitor [flags]",
			Short: "Sample host resource usage",
			Long: `Sample CPU, memory, disk and load usage and print the retained window.

Samples are kept in a rolling window sized from monitoring.retention and
monitoring.interval, so only the newest samples are reported when --count
exceeds the window. --retention resizes the window before sampling starts.

With --count 0 the sampler runs in the background until interrupted. A
failed sample is then logged and skipped instead of ending the run.

Example:
  rollbuf monitor --count 10 --interval 1s
  rollbuf monitor --count 0 --retention 10m -o json
`,
		}, monitorFlags, runMonitor,
	)
}

var monitorFlags = []commandLineFlag{countFlag, intervalFlag, retentionFlag, outputFlag}

type monitorReport struct {
	RunID    string                    `json:"runId" yaml:"runId"`
	Interval string                    `json:"interval" yaml:"interval"`
	Samples  int                       `json:"samples" yaml:"samples"`
	History  *resource.ResourceHistory `json:"history" yaml:"history"`
}

func runMonitor(ctx *Context, _ []string) error {
	count, _, err := ctx.IntParam(countFlag.name)
	if err != nil {
		return err
	}
	if count < 0 {
		return errInvalidCount
	}

	output := ctx.StringParam(outputFlag.name)
	switch output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("%w: %q", errInvalidOutput, output)
	}

	interval, err := ctx.DurationParam(intervalFlag.name, ctx.Config.Monitoring.Interval)
	if err != nil {
		return err
	}
	ctx.Config.Monitoring.Interval = interval

	configured := ctx.Config.Monitoring.Retention
	retention, err := ctx.DurationParam(retentionFlag.name, configured)
	if err != nil {
		return err
	}
	if retention < 0 {
		return errInvalidRetention
	}

	runID, err := genRunID()
	if err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}
	ctx.Context = logger.WithLogger(ctx.Context, logger.FromContext(ctx).With(tag.RunID(runID)))

	var opts []resource.ServiceOption
	if monitorCollector != nil {
		opts = append(opts, resource.WithCollector(monitorCollector))
	}
	svc := resource.NewService(ctx.Config, opts...)
	if retention != configured {
		if err := svc.SetRetention(ctx, retention); err != nil {
			return fmt.Errorf("failed to set retention: %w", err)
		}
	}

	logger.Info(ctx, "Sampling resources", tag.Count(count), tag.Interval(interval))

	start := time.Now()
	taken := 0
	if count > 0 {
		if taken, err = svc.Run(ctx, count); err != nil {
			return err
		}
	} else if err := sampleUntilDone(ctx, svc); err != nil {
		return err
	}

	// Timestamps have second precision, so widen the window by one.
	history := svc.GetHistory(time.Since(start) + time.Second)
	if count == 0 {
		taken = len(history.CPU)
	}

	report := monitorReport{
		RunID:    runID,
		Interval: interval.String(),
		Samples:  taken,
		History:  history,
	}
	return renderReport(ctx.Command.OutOrStdout(), output, report)
}

// sampleUntilDone keeps the background sampler running until ctx is done.
func sampleUntilDone(ctx *Context, svc *resource.Service) error {
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sampling: %w", err)
	}
	<-ctx.Done()
	return svc.Stop(context.WithoutCancel(ctx))
}

func renderReport(w io.Writer, output string, report monitorReport) error {
	switch output {
	case outputJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case outputYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = w.Write(data)
		return err

	default:
		_, err := fmt.Fprintln(w, renderTable(report))
		return err
	}
}

var sampleHeader = table.Row{
	"#",
	"Time",
	"CPU %",
	"Memory %",
	"Disk %",
	"Load",
}

func renderTable(report monitorReport) string {
	t := table.NewWriter()
	t.SetTitle("Run " + report.RunID)
	t.AppendHeader(sampleHeader)
	t.Style().Format.Footer = text.FormatDefault

	h := report.History
	for i, p := range h.CPU {
		t.AppendRow(table.Row{
			i + 1,
			time.Unix(p.Timestamp, 0).Format(time.DateTime),
			fmt.Sprintf("%.1f", p.Value),
			fmt.Sprintf("%.1f", h.Memory[i].Value),
			fmt.Sprintf("%.1f", h.Disk[i].Value),
			fmt.Sprintf("%.2f", h.Load[i].Value),
		})
	}

	t.AppendFooter(table.Row{
		"",
		"Latest",
		"",
		formatBytes(h.MemoryUsedBytes) + " / " + formatBytes(h.MemoryTotalBytes),
		formatBytes(h.DiskUsedBytes) + " / " + formatBytes(h.DiskTotalBytes),
		"",
	})
	return t.Render()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
