package core

import "fmt"

// EventType is the event ID of a decoded trace record.
type EventType uint16

const (
	EventNull             EventType = 0x00
	EventTraceStart       EventType = 0x01
	EventTimestampConfig  EventType = 0x02
	EventObjectName       EventType = 0x03
	EventTaskPriority     EventType = 0x04
	EventTaskPrioInherit  EventType = 0x05
	EventTaskPrioDisinh   EventType = 0x06
	EventDefineIsr        EventType = 0x07
	EventTaskCreate       EventType = 0x10
	EventQueueCreate      EventType = 0x11
	EventSemaphoreCreate  EventType = 0x12
	EventMutexCreate      EventType = 0x13
	EventTaskReady        EventType = 0x30
	EventNewTime          EventType = 0x31
	EventNewTimeSuspended EventType = 0x32
	EventIsrBegin         EventType = 0x33
	EventIsrResume        EventType = 0x34
	EventTaskBegin        EventType = 0x35
	EventTaskResume       EventType = 0x36
	EventTaskActivate     EventType = 0x37
	EventTaskDelay        EventType = 0x79
	EventTaskDelayUntil   EventType = 0x7A
	EventUser             EventType = 0x90
	EventUnusedStack      EventType = 0xEA
)

var eventTypeNames = map[EventType]string{
	EventNull:             "Null",
	EventTraceStart:       "TraceStart",
	EventTimestampConfig:  "TsConfig",
	EventObjectName:       "ObjectName",
	EventTaskPriority:     "TaskPriority",
	EventTaskPrioInherit:  "TaskPriorityInherit",
	EventTaskPrioDisinh:   "TaskPriorityDisinherit",
	EventDefineIsr:        "DefineIsr",
	EventTaskCreate:       "TaskCreate",
	EventQueueCreate:      "QueueCreate",
	EventSemaphoreCreate:  "SemaphoreCreate",
	EventMutexCreate:      "MutexCreate",
	EventTaskReady:        "TaskReady",
	EventNewTime:          "NewTime",
	EventNewTimeSuspended: "NewTimeSchedulerSuspended",
	EventIsrBegin:         "IsrBegin",
	EventIsrResume:        "IsrResume",
	EventTaskBegin:        "TaskBegin",
	EventTaskResume:       "TaskResume",
	EventTaskActivate:     "TaskActivate",
	EventTaskDelay:        "TaskDelay",
	EventTaskDelayUntil:   "TaskDelayUntil",
	EventUser:             "UserEvent",
	EventUnusedStack:      "UnusedStack",
}

func (typ EventType) String() string {
	if name, ok := eventTypeNames[typ]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%03X)", uint16(typ))
}

// ParseEventType looks a type up by the name String returns for it.
func ParseEventType(name string) (EventType, bool) {
	for typ, n := range eventTypeNames {
		if n == name {
			return typ, true
		}
	}
	return 0, false
}

// Event is one decoded trace record. Only the fields relevant to Type are
// populated.
type Event struct {
	Type EventType
	// Timestamp is the raw value of the hardware timer.
	Timestamp uint32
	// Count is the per-event sequence counter.
	Count uint16

	Handle   ObjectHandle
	Priority Priority
	LowMark  uint32
	Message  string
}

// Context returns the execution context switched in by this event, if any.
func (event Event) Context() (ContextID, bool) {
	switch event.Type {
	case EventIsrBegin, EventIsrResume:
		return ISRContext(event.Handle), true
	case EventTaskBegin, EventTaskResume, EventTaskActivate:
		return TaskContext(event.Handle), true
	default:
		return ContextID{}, false
	}
}

func (event Event) String() string {
	switch event.Type {
	case EventIsrBegin, EventIsrResume, EventTaskBegin, EventTaskResume,
		EventTaskActivate, EventTaskReady, EventTaskCreate, EventTaskPriority:
		return fmt.Sprintf("%s(handle=%d, priority=%d)", event.Type, event.Handle, event.Priority)
	case EventUnusedStack:
		return fmt.Sprintf("%s(handle=%d, low_mark=%d)", event.Type, event.Handle, event.LowMark)
	case EventUser:
		return event.Message
	default:
		return event.Type.String()
	}
}
