package core

import (
	"sort"
	"tracestats/clock"
)

type Header struct {
	Endianness               string
	FormatVersion            uint16
	KernelVersion            string
	KernelPort               string
	Options                  uint32
	IRQPriorityOrder         uint32
	NumCores                 uint32
	ISRTailChainingThreshold uint32
	PlatformConfig           string
	PlatformConfigVersion    string
}

type TimestampInfo struct {
	TimerType       string
	Frequency       clock.Frequency
	Period          uint32
	Wraparounds     uint32
	OSTickRateHz    uint32
	LatestTimestamp uint32
	OSTickCount     uint32
}

// Metadata is what a source knows about the stream before its first event,
// and again after every restart.
type Metadata struct {
	Protocol  string
	Header    Header
	Timestamp TimestampInfo
	// TickBits is the width of Event.Timestamp; zero means clock.DefaultBits.
	TickBits uint
	Symbols  *SymbolTable
}

func (md Metadata) TimerBits() uint {
	if md.TickBits == 0 {
		return clock.DefaultBits
	}
	return md.TickBits
}

type SymbolEntry struct {
	Class  string
	Symbol string
}

type SymbolTable struct {
	entries map[ObjectHandle]SymbolEntry
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		entries: make(map[ObjectHandle]SymbolEntry),
	}
}

func (table *SymbolTable) Insert(handle ObjectHandle, entry SymbolEntry) {
	table.entries[handle] = entry
}

// Symbol returns the name recorded for handle. A nil table resolves nothing.
func (table *SymbolTable) Symbol(handle ObjectHandle) (string, bool) {
	if table == nil {
		return "", false
	}
	entry, ok := table.entries[handle]
	if !ok || entry.Symbol == "" {
		return "", false
	}
	return entry.Symbol, true
}

type HandleEntry struct {
	Handle ObjectHandle
	SymbolEntry
}

// Entries lists the table ordered by handle.
func (table *SymbolTable) Entries() []HandleEntry {
	if table == nil {
		return nil
	}
	entries := make([]HandleEntry, 0, len(table.entries))
	for handle, entry := range table.entries {
		entries = append(entries, HandleEntry{Handle: handle, SymbolEntry: entry})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Handle < entries[j].Handle })
	return entries
}

func (table *SymbolTable) Len() int {
	if table == nil {
		return 0
	}
	return len(table.entries)
}
