package core

import "fmt"

// DiagnosticKind classifies a non-fatal condition found while analyzing.
type DiagnosticKind uint8

const (
	DiagnosticDecodeError DiagnosticKind = iota
	DiagnosticDroppedEvents
	DiagnosticBackwardsTimestamp
	DiagnosticTickGap
	DiagnosticStackLow
	numDiagnosticKinds
)

func (kind DiagnosticKind) String() string {
	switch kind {
	case DiagnosticDecodeError:
		return "decode-error"
	case DiagnosticDroppedEvents:
		return "dropped-events"
	case DiagnosticBackwardsTimestamp:
		return "backwards-timestamp"
	case DiagnosticTickGap:
		return "tick-gap"
	case DiagnosticStackLow:
		return "stack-low"
	default:
		return fmt.Sprintf("DiagnosticKind(%d)", uint8(kind))
	}
}

func DiagnosticKinds() []DiagnosticKind {
	kinds := make([]DiagnosticKind, 0, numDiagnosticKinds)
	for kind := DiagnosticKind(0); kind < numDiagnosticKinds; kind++ {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Diagnostics counts occurrences per kind.
type Diagnostics struct {
	counts [numDiagnosticKinds]uint64
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

func (diagnostics *Diagnostics) Add(kind DiagnosticKind) {
	diagnostics.counts[kind]++
}

func (diagnostics *Diagnostics) Count(kind DiagnosticKind) uint64 {
	return diagnostics.counts[kind]
}

func (diagnostics *Diagnostics) Total() uint64 {
	total := uint64(0)
	for _, count := range diagnostics.counts {
		total += count
	}
	return total
}
