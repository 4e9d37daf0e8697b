package report

import (
	"fmt"
	"sort"
	"time"
	"tracestats/clock"
	"tracestats/core"
	"tracestats/stats"
)

// Quantiles reported for running intervals.
var Quantiles = []float64{0.5, 0.9, 0.99}

type Entry struct {
	Handle  core.ObjectHandle `json:"handle"`
	Address string            `json:"address"`
	Class   string            `json:"class"`
	Symbol  string            `json:"symbol"`
}

type TypeRow struct {
	ID      uint16  `json:"id"`
	Type    string  `json:"type"`
	Count   uint64  `json:"count"`
	Percent float64 `json:"percent"`
	// MeanInterval is the mean gap in ticks between arrivals of this type.
	MeanInterval float64 `json:"mean_interval_ticks"`
}

type RuntimeRow struct {
	Handle     core.ObjectHandle    `json:"handle"`
	Symbol     string               `json:"symbol"`
	Type       string               `json:"type"`
	Priorities []core.Priority      `json:"priorities"`
	Stack      *core.StackWatermark `json:"stack,omitempty"`
	Count      uint64               `json:"count"`
	Ticks      uint64               `json:"ticks"`
	Nanos      *uint64              `json:"nanos,omitempty"`
	Percent    float64              `json:"percent"`
}

type DistributionRow struct {
	Handle core.ObjectHandle `json:"handle"`
	Symbol string            `json:"symbol"`
	Type   string            `json:"type"`
	// Intervals is the number of closed running intervals; Min through SD
	// cover all of them.
	Intervals uint64  `json:"intervals"`
	Min       uint64  `json:"min_ticks"`
	Max       uint64  `json:"max_ticks"`
	Mean      float64 `json:"mean_ticks"`
	SD        float64 `json:"stddev_ticks"`
	// Quantiles are taken over the retained samples only.
	Quantiles []uint64 `json:"quantile_ticks"`
	Retained  uint64   `json:"retained"`
	Truncated uint64   `json:"truncated"`
}

type Totals struct {
	Events              uint64  `json:"events"`
	DroppedEvents       uint64  `json:"dropped_events"`
	Restarts            int     `json:"restarts"`
	DecodeErrors        uint64  `json:"decode_errors"`
	BackwardsTimestamps uint64  `json:"backwards_timestamps"`
	TickGaps            uint64  `json:"tick_gaps"`
	StackLow            uint64  `json:"stack_low"`
	UnattributedTicks   uint64  `json:"unattributed_ticks"`
	Ticks               uint64  `json:"ticks"`
	Nanos               *uint64 `json:"nanos,omitempty"`
}

// Report is the tabular summary of one analysis.
type Report struct {
	Frequency    clock.Frequency   `json:"frequency"`
	Entries      []Entry           `json:"entries"`
	Histogram    []TypeRow         `json:"histogram"`
	Runtime      []RuntimeRow      `json:"runtime"`
	Distribution []DistributionRow `json:"distribution"`
	Totals       Totals            `json:"totals"`
}

func (report *Report) Unitless() bool {
	return report.Frequency.IsUnitless()
}

// Duration converts ticks with the report frequency.
func (report *Report) Duration(ticks uint64) (time.Duration, bool) {
	return report.Frequency.Duration(clock.Tick(ticks))
}

// Build shapes an analysis result into report tables. symbols resolves
// handles to names and frequency converts ticks to physical time; a unitless
// frequency leaves every nanosecond field empty.
func Build(result *core.Result, symbols *core.SymbolTable, frequency clock.Frequency) (*Report, error) {
	report := &Report{
		Frequency:    frequency,
		Entries:      buildEntries(symbols),
		Histogram:    buildHistogram(result),
		Runtime:      make([]RuntimeRow, 0, len(result.Contexts)),
		Distribution: make([]DistributionRow, 0, len(result.Contexts)),
	}

	contexts := make([]*core.ContextRecord, len(result.Contexts))
	copy(contexts, result.Contexts)
	sort.SliceStable(contexts, func(i, j int) bool {
		if contexts[i].TotalRuntime() == contexts[j].TotalRuntime() {
			return contexts[i].ID.Less(contexts[j].ID)
		}
		return contexts[i].TotalRuntime() < contexts[j].TotalRuntime()
	})

	for _, record := range contexts {
		symbol, _ := symbols.Symbol(record.ID.Handle)
		row := RuntimeRow{
			Handle:     record.ID.Handle,
			Symbol:     symbol,
			Type:       record.ID.Kind.String(),
			Priorities: record.Priorities(),
			Count:      record.SwitchCount(),
			Ticks:      record.TotalRuntime(),
			Nanos:      nanos(frequency, record.TotalRuntime()),
			Percent:    percent(record.TotalRuntime(), uint64(result.GrandTotal)),
		}
		if result.Stacks != nil {
			if stack, ok := result.Stacks.Record(record.ID.Handle); ok {
				row.Stack = &stack
			}
		}
		report.Runtime = append(report.Runtime, row)

		distribution, err := buildDistribution(record, symbol)
		if err != nil {
			return nil, err
		}
		report.Distribution = append(report.Distribution, distribution)
	}

	report.Totals = Totals{
		Events:              result.Events,
		DroppedEvents:       result.DroppedEvents,
		Restarts:            result.Restarts,
		DecodeErrors:        result.Diagnostics.Count(core.DiagnosticDecodeError),
		BackwardsTimestamps: result.Diagnostics.Count(core.DiagnosticBackwardsTimestamp),
		TickGaps:            result.Diagnostics.Count(core.DiagnosticTickGap),
		StackLow:            result.Diagnostics.Count(core.DiagnosticStackLow),
		UnattributedTicks:   result.Unattributed,
		Ticks:               uint64(result.GrandTotal),
		Nanos:               nanos(frequency, uint64(result.GrandTotal)),
	}
	return report, nil
}

func buildEntries(symbols *core.SymbolTable) []Entry {
	entries := make([]Entry, 0, symbols.Len())
	for _, entry := range symbols.Entries() {
		entries = append(entries, Entry{
			Handle:  entry.Handle,
			Address: fmt.Sprintf("0x%08X", uint32(entry.Handle)),
			Class:   entry.Class,
			Symbol:  entry.Symbol,
		})
	}
	return entries
}

// buildHistogram orders event types by count, least frequent first.
func buildHistogram(result *core.Result) []TypeRow {
	rows := make([]TypeRow, 0, len(result.Histogram))
	for _, typeStats := range result.Histogram {
		rows = append(rows, TypeRow{
			ID:           uint16(typeStats.Type),
			Type:         typeStats.Type.String(),
			Count:        typeStats.Count(),
			Percent:      percent(typeStats.Count(), result.Events),
			MeanInterval: typeStats.Arrivals.MeanInterval(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].Count < rows[j].Count
	})
	return rows
}

func buildDistribution(record *core.ContextRecord, symbol string) (DistributionRow, error) {
	durations := record.Durations()
	samples := record.Samples()
	runs, err := samples.Runs()
	if err != nil {
		return DistributionRow{}, err
	}
	return DistributionRow{
		Handle:    record.ID.Handle,
		Symbol:    symbol,
		Type:      record.ID.Kind.String(),
		Intervals: durations.Count(),
		Min:       durations.Min(),
		Max:       durations.Max(),
		Mean:      durations.Mean(),
		SD:        durations.SD(),
		Quantiles: stats.Quantiles(runs, Quantiles),
		Retained:  samples.Retained(),
		Truncated: samples.Truncated(),
	}, nil
}

func nanos(frequency clock.Frequency, ticks uint64) *uint64 {
	ns, ok := frequency.Nanos(clock.Tick(ticks))
	if !ok {
		return nil
	}
	return &ns
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
