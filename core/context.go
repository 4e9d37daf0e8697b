package core

import "fmt"

// ObjectHandle identifies a kernel object (task, ISR, queue...) in a capture.
// Handles are only stable within one session.
type ObjectHandle uint32

// NoTask is the handle the kernel reports when no task is running.
const NoTask ObjectHandle = 0

type Priority uint32

type ContextKind uint8

const (
	KindTask ContextKind = iota
	KindISR
)

func (kind ContextKind) String() string {
	switch kind {
	case KindTask:
		return "Task"
	case KindISR:
		return "ISR"
	default:
		return fmt.Sprintf("ContextKind(%d)", uint8(kind))
	}
}

// ContextID names an execution context. Two IDs are equal only when both the
// kind and the handle match, so a task and an ISR sharing a handle value are
// distinct contexts.
type ContextID struct {
	Kind   ContextKind
	Handle ObjectHandle
}

// Idle is the context considered running until the first switch is seen.
var Idle = TaskContext(NoTask)

func TaskContext(handle ObjectHandle) ContextID {
	return ContextID{Kind: KindTask, Handle: handle}
}

func ISRContext(handle ObjectHandle) ContextID {
	return ContextID{Kind: KindISR, Handle: handle}
}

func (id ContextID) Less(other ContextID) bool {
	if id.Kind == other.Kind {
		return id.Handle < other.Handle
	}
	return id.Kind < other.Kind
}

// Key packs the ID into a single integer for storage keys.
func (id ContextID) Key() uint64 {
	return uint64(id.Kind)<<32 | uint64(id.Handle)
}

func (id ContextID) String() string {
	return fmt.Sprintf("%s(%d)", id.Kind, id.Handle)
}
