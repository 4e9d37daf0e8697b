package core

import "sort"

// StackWatermark is the range of low-water-marks reported for one object.
type StackWatermark struct {
	Min uint32
	Max uint32
}

type StackTracker struct {
	records map[ObjectHandle]*StackWatermark
}

func NewStackTracker() *StackTracker {
	return &StackTracker{
		records: make(map[ObjectHandle]*StackWatermark),
	}
}

// Observe folds a low-water-mark sample into the record of handle and returns
// the updated record.
func (tracker *StackTracker) Observe(handle ObjectHandle, lowMark uint32) StackWatermark {
	record, ok := tracker.records[handle]
	if !ok {
		record = &StackWatermark{Min: lowMark, Max: lowMark}
		tracker.records[handle] = record
		return *record
	}
	if lowMark < record.Min {
		record.Min = lowMark
	}
	if lowMark > record.Max {
		record.Max = lowMark
	}
	return *record
}

func (tracker *StackTracker) Record(handle ObjectHandle) (StackWatermark, bool) {
	record, ok := tracker.records[handle]
	if !ok {
		return StackWatermark{}, false
	}
	return *record, true
}

func (tracker *StackTracker) Handles() []ObjectHandle {
	handles := make([]ObjectHandle, 0, len(tracker.records))
	for handle := range tracker.records {
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}
