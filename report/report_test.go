package report

import (
	"bytes"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"tracestats/clock"
	"tracestats/core"
	"tracestats/stats"
)

func testResult(t *testing.T) (*core.Result, *core.SymbolTable) {
	acc := core.NewAccumulator(core.DefaultConfig(), nil)
	a, b := core.TaskContext(1), core.ISRContext(2)
	acc.Start(0)
	require.NoError(t, acc.OnSwitch(a, 0, 3))
	require.NoError(t, acc.OnSwitch(b, 10, 7))
	require.NoError(t, acc.OnSwitch(a, 12, 4))
	require.NoError(t, acc.OnSwitch(b, 30, 7))
	require.NoError(t, acc.Close(40))

	stacks := core.NewStackTracker()
	stacks.Observe(1, 120)
	stacks.Observe(1, 90)

	taskBegin := &core.EventTypeStats{Type: core.EventTaskBegin, Arrivals: stats.NewArrivalStatistics()}
	taskBegin.Arrivals.Append(0)
	taskBegin.Arrivals.Append(12)
	isrBegin := &core.EventTypeStats{Type: core.EventIsrBegin, Arrivals: stats.NewArrivalStatistics()}
	for _, tick := range []uint64{10, 30} {
		isrBegin.Arrivals.Append(tick)
	}
	user := &core.EventTypeStats{Type: core.EventUser, Arrivals: stats.NewArrivalStatistics()}
	user.Arrivals.Append(40)

	symbols := core.NewSymbolTable()
	symbols.Insert(1, core.SymbolEntry{Class: "Task", Symbol: "main"})
	symbols.Insert(2, core.SymbolEntry{Class: "ISR", Symbol: "uart"})

	diagnostics := core.NewDiagnostics()
	diagnostics.Add(core.DiagnosticDecodeError)

	return &core.Result{
		Events:        5,
		DroppedEvents: 3,
		Restarts:      0,
		FinalTick:     40,
		GrandTotal:    40,
		Histogram:     []*core.EventTypeStats{isrBegin, taskBegin, user},
		Contexts:      acc.Records(),
		Stacks:        stacks,
		Diagnostics:   diagnostics,
	}, symbols
}

func TestBuild(t *testing.T) {
	result, symbols := testResult(t)
	report, err := Build(result, symbols, 1000)
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	assert.Equal(t, Entry{Handle: 2, Address: "0x00000002", Class: "ISR", Symbol: "uart"}, report.Entries[1])

	require.Len(t, report.Histogram, 3)
	assert.Equal(t, "UserEvent", report.Histogram[0].Type)
	assert.Equal(t, uint16(0x33), report.Histogram[1].ID)
	assert.Equal(t, 40.0, report.Histogram[1].Percent)
	assert.Equal(t, 20.0, report.Histogram[1].MeanInterval)

	require.Len(t, report.Runtime, 2)
	isr := report.Runtime[0]
	task := report.Runtime[1]
	assert.Equal(t, "ISR", isr.Type)
	assert.Equal(t, uint64(12), isr.Ticks)
	assert.Equal(t, 30.0, isr.Percent)
	assert.Nil(t, isr.Stack)
	assert.Equal(t, "Task", task.Type)
	assert.Equal(t, "main", task.Symbol)
	assert.Equal(t, uint64(28), task.Ticks)
	assert.Equal(t, []core.Priority{3, 4}, task.Priorities)
	assert.Equal(t, &core.StackWatermark{Min: 90, Max: 120}, task.Stack)
	require.NotNil(t, task.Nanos)
	assert.Equal(t, uint64(28_000_000), *task.Nanos)

	dist := report.Distribution[1]
	assert.Equal(t, uint64(2), dist.Intervals)
	assert.Equal(t, uint64(10), dist.Min)
	assert.Equal(t, uint64(18), dist.Max)
	assert.Equal(t, 14.0, dist.Mean)
	assert.Equal(t, []uint64{10, 18, 18}, dist.Quantiles)

	assert.Equal(t, uint64(5), report.Totals.Events)
	assert.Equal(t, uint64(3), report.Totals.DroppedEvents)
	assert.Equal(t, uint64(1), report.Totals.DecodeErrors)
	assert.Equal(t, uint64(40), report.Totals.Ticks)
	require.NotNil(t, report.Totals.Nanos)
	assert.Equal(t, uint64(40_000_000), *report.Totals.Nanos)
}

func TestBuildUnitless(t *testing.T) {
	result, symbols := testResult(t)
	report, err := Build(result, symbols, clock.Unitless)
	require.NoError(t, err)
	assert.True(t, report.Unitless())
	assert.Nil(t, report.Totals.Nanos)
	for _, row := range report.Runtime {
		assert.Nil(t, row.Nanos)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, report))
	assert.NotContains(t, buf.String(), "Nanos")
	assert.NotContains(t, buf.String(), "Total time (ns)")
	assert.Contains(t, buf.String(), "Total time (ticks): 40")
}

func TestWriteText(t *testing.T) {
	result, symbols := testResult(t)
	report, err := Build(result, symbols, 1000)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "0x00000001")
	assert.Contains(t, out, "0x033")
	assert.Contains(t, out, "90/120")
	assert.Contains(t, out, "P99")
	assert.Contains(t, out, "Dropped events: 3")
	assert.Contains(t, out, "Total time (ns): 40000000")
	assert.Contains(t, out, "Total time: 40ms")
}

func TestWriteJSON(t *testing.T) {
	result, symbols := testResult(t)
	report, err := Build(result, symbols, 1000)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, FormatJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	totals := decoded["totals"].(map[string]interface{})
	assert.Equal(t, 40.0, totals["ticks"])
	assert.Len(t, decoded["runtime"], 2)
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, format)
	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
