package report

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"
	"tracestats/core"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatText, FormatJSON:
		return Format(name), nil
	default:
		return "", errors.Errorf("unknown report format %q", name)
	}
}

func Write(w io.Writer, report *Report, format Format) error {
	if format == FormatJSON {
		return WriteJSON(w, report)
	}
	return WriteText(w, report)
}

func WriteJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// WriteText renders the report as aligned plain-text tables followed by the
// totals.
func WriteText(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	unitless := report.Unitless()

	row(tw, "Handle", "Address", "Class", "Symbol")
	for _, entry := range report.Entries {
		row(tw, entry.Handle, entry.Address, entry.Class, entry.Symbol)
	}
	fmt.Fprintln(tw)

	row(tw, "Count", "%", "ID", "Type", "Mean gap")
	for _, typeRow := range report.Histogram {
		row(tw, typeRow.Count, fmt.Sprintf("%.01f", typeRow.Percent),
			fmt.Sprintf("0x%03X", typeRow.ID), typeRow.Type,
			report.floatTicks(typeRow.MeanInterval, typeRow.Count > 1))
	}
	fmt.Fprintln(tw)

	header := []interface{}{"Handle", "Symbol", "Type", "Prio", "Stack LM Min/Max", "Count", "Ticks"}
	if !unitless {
		header = append(header, "Nanos", "Duration")
	}
	row(tw, append(header, "%")...)
	for _, runtime := range report.Runtime {
		stack := ""
		if runtime.Stack != nil {
			stack = fmt.Sprintf("%d/%d", runtime.Stack.Min, runtime.Stack.Max)
		}
		cells := []interface{}{runtime.Handle, runtime.Symbol, runtime.Type,
			joinPriorities(runtime.Priorities), stack, runtime.Count, runtime.Ticks}
		if !unitless {
			duration, _ := report.Duration(runtime.Ticks)
			cells = append(cells, *runtime.Nanos, duration)
		}
		row(tw, append(cells, fmt.Sprintf("%.02f", runtime.Percent))...)
	}
	fmt.Fprintln(tw)

	quantileNames := make([]interface{}, 0, len(Quantiles))
	for _, q := range Quantiles {
		quantileNames = append(quantileNames, fmt.Sprintf("P%d", int(math.Round(q*100))))
	}
	header = append([]interface{}{"Handle", "Symbol", "Type", "Intervals", "Min", "Max", "Mean", "Std Dev"}, quantileNames...)
	row(tw, append(header, "Retained")...)
	for _, dist := range report.Distribution {
		measured := dist.Intervals > 0
		cells := []interface{}{dist.Handle, dist.Symbol, dist.Type, dist.Intervals,
			report.ticks(dist.Min, measured), report.ticks(dist.Max, measured),
			report.floatTicks(dist.Mean, measured), report.floatTicks(dist.SD, measured)}
		for _, value := range dist.Quantiles {
			cells = append(cells, report.ticks(value, dist.Retained > 0))
		}
		retained := fmt.Sprintf("%d", dist.Retained)
		if dist.Truncated > 0 {
			retained = fmt.Sprintf("%d (+%d truncated)", dist.Retained, dist.Truncated)
		}
		row(tw, append(cells, retained)...)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	totals := report.Totals
	fmt.Fprintf(w, "Total events: %d\n", totals.Events)
	fmt.Fprintf(w, "Dropped events: %d\n", totals.DroppedEvents)
	fmt.Fprintf(w, "Trace restarts: %d\n", totals.Restarts)
	fmt.Fprintf(w, "Decode errors: %d\n", totals.DecodeErrors)
	if totals.BackwardsTimestamps > 0 {
		fmt.Fprintf(w, "Backwards timestamps: %d\n", totals.BackwardsTimestamps)
	}
	if totals.TickGaps > 0 {
		fmt.Fprintf(w, "Suspect timestamp gaps: %d\n", totals.TickGaps)
	}
	if totals.StackLow > 0 {
		fmt.Fprintf(w, "Low stack warnings: %d\n", totals.StackLow)
	}
	fmt.Fprintf(w, "Total time (ticks): %d\n", totals.Ticks)
	if totals.Nanos != nil {
		duration, _ := report.Duration(totals.Ticks)
		fmt.Fprintf(w, "Total time (ns): %d\n", *totals.Nanos)
		fmt.Fprintf(w, "Total time: %s\n", duration)
	}
	return nil
}

func row(w io.Writer, cells ...interface{}) {
	for _, cell := range cells {
		fmt.Fprintf(w, "%v\t", cell)
	}
	fmt.Fprintln(w)
}

// ticks formats a tick count as a duration when the frequency is known.
func (report *Report) ticks(value uint64, valid bool) string {
	if !valid {
		return "-"
	}
	if duration, ok := report.Duration(value); ok {
		return duration.String()
	}
	return fmt.Sprintf("%d", value)
}

func (report *Report) floatTicks(value float64, valid bool) string {
	if !valid {
		return "-"
	}
	if duration, ok := report.Frequency.FloatDuration(value); ok {
		return duration.Round(time.Nanosecond).String()
	}
	return fmt.Sprintf("%.1f", value)
}

func joinPriorities(priorities []core.Priority) string {
	parts := make([]string, 0, len(priorities))
	for _, priority := range priorities {
		parts = append(parts, fmt.Sprintf("%d", priority))
	}
	return strings.Join(parts, ",")
}
