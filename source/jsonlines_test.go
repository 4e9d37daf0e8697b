package source

import (
	"errors"
	. "github.com/onsi/gomega"
	"io"
	"strings"
	"testing"
	"tracestats/clock"
	"tracestats/core"
)

const header = `{"protocol": "Streaming", "header": {"endianness": "Little", "kernel_port": "FreeRTOS", "num_cores": 1}, "timestamp": {"timer_type": "FreeRunning32Incr", "frequency": 1000, "wraparounds": 2}, "tick_bits": 16, "symbols": [{"handle": 2, "class": "Task", "symbol": "worker"}, {"handle": 1, "class": "Task", "symbol": "main"}]}`

func openLines(t *testing.T, lines ...string) *JSONLines {
	source, err := NewJSONLines(strings.NewReader(strings.Join(lines, "\n")))
	NewWithT(t).Expect(err).NotTo(HaveOccurred())
	return source
}

func TestJSONLinesHeader(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header)

	metadata := source.Metadata()
	g.Expect(metadata.Protocol).To(Equal("Streaming"))
	g.Expect(metadata.Header.KernelPort).To(Equal("FreeRTOS"))
	g.Expect(metadata.Timestamp.Frequency).To(Equal(clock.Frequency(1000)))
	g.Expect(metadata.Timestamp.Wraparounds).To(Equal(uint32(2)))
	g.Expect(metadata.TimerBits()).To(Equal(uint(16)))
	g.Expect(metadata.Symbols.Len()).To(Equal(2))
	g.Expect(metadata.Symbols.Entries()[0].Symbol).To(Equal("main"))

	_, err := source.ReadEvent()
	g.Expect(err).To(Equal(io.EOF))
}

func TestJSONLinesEvents(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header,
		`{"type": "TaskBegin", "timestamp": 10, "count": 1, "handle": 2, "priority": 3}`,
		``,
		`{"id": 234, "timestamp": 11, "count": 2, "handle": 2, "low_mark": 80}`,
		`{"type": "UserEvent", "timestamp": 12, "count": 3, "message": "hello"}`,
	)

	event, err := source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event).To(Equal(core.Event{Type: core.EventTaskBegin, Timestamp: 10, Count: 1, Handle: 2, Priority: 3}))

	event, err = source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Type).To(Equal(core.EventUnusedStack))
	g.Expect(event.LowMark).To(Equal(uint32(80)))

	event, err = source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.String()).To(Equal("hello"))

	_, err = source.ReadEvent()
	g.Expect(err).To(Equal(io.EOF))
}

func TestJSONLinesDecodeErrors(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header,
		`{"type": "TaskBegin", "timestamp": -1, "count": 1}`,
		`not json`,
		`{"type": "NoSuchEvent", "timestamp": 1, "count": 1}`,
		`{"type": "TaskBegin", "id": 1, "timestamp": 1, "count": 1}`,
		`{"timestamp": 1, "count": 1}`,
		`{"type": "TaskReady", "timestamp": 5, "count": 2, "handle": 1}`,
	)

	for i := 0; i < 5; i++ {
		_, err := source.ReadEvent()
		var decodeErr *core.DecodeError
		g.Expect(errors.As(err, &decodeErr)).To(BeTrue(), "record %d: %v", i, err)
	}
	event, err := source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Type).To(Equal(core.EventTaskReady))
}

func TestJSONLinesDecodeErrorOffset(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header, `{}`)
	_, err := source.ReadEvent()
	var decodeErr *core.DecodeError
	g.Expect(errors.As(err, &decodeErr)).To(BeTrue())
	g.Expect(decodeErr.Offset).To(Equal(int64(len(header) + 1)))
}

func TestJSONLinesRestart(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header,
		`{"type": "TaskBegin", "timestamp": 10, "count": 1, "handle": 2}`,
		`{"restart": {"protocol": "Streaming", "timestamp": {"frequency": 2000}, "symbols": [{"handle": 9, "symbol": "idle"}]}}`,
		`{"type": "TaskBegin", "timestamp": 0, "count": 0, "handle": 9}`,
	)

	_, err := source.Restart()
	g.Expect(err).To(HaveOccurred())

	_, err = source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	_, err = source.ReadEvent()
	g.Expect(errors.Is(err, core.ErrTraceRestarted)).To(BeTrue())

	metadata, err := source.Restart()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(metadata.Timestamp.Frequency).To(Equal(clock.Frequency(2000)))
	g.Expect(metadata.TimerBits()).To(Equal(uint(clock.DefaultBits)))
	symbol, ok := metadata.Symbols.Symbol(9)
	g.Expect(ok).To(BeTrue())
	g.Expect(symbol).To(Equal("idle"))
	g.Expect(source.Metadata().Timestamp.Frequency).To(Equal(clock.Frequency(2000)))

	event, err := source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Handle).To(Equal(core.ObjectHandle(9)))
}

func TestJSONLinesMalformedRestartIsFatal(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header, `{"restart": {"timestamp": {}}}`)
	_, err := source.ReadEvent()
	g.Expect(err).To(HaveOccurred())
	var decodeErr *core.DecodeError
	g.Expect(errors.As(err, &decodeErr)).To(BeFalse())
	g.Expect(errors.Is(err, core.ErrTraceRestarted)).To(BeFalse())
}

func TestJSONLinesMalformedHeader(t *testing.T) {
	g := NewWithT(t)
	_, err := NewJSONLines(strings.NewReader(""))
	g.Expect(err).To(MatchError(ContainSubstring("missing stream header")))

	_, err = NewJSONLines(strings.NewReader(`{"protocol": "Streaming"}`))
	g.Expect(err).To(MatchError(ContainSubstring("stream header")))

	_, err = NewJSONLines(strings.NewReader(`{"timestamp": {"frequency": 1}, "tick_bits": 40}`))
	g.Expect(err).To(HaveOccurred())
}

func TestJSONLinesCustomPrintfEventID(t *testing.T) {
	g := NewWithT(t)
	source := openLines(t, header,
		`{"id": 160, "timestamp": 1, "count": 1, "message": "before"}`,
		`{"id": 161, "timestamp": 2, "count": 2}`,
		`{"type": "TaskBegin", "id": 160, "timestamp": 3, "count": 3}`,
		`{"restart": {"timestamp": {"frequency": 1000}}}`,
		`{"type": "UserEvent", "id": 160, "timestamp": 0, "count": 0, "message": "after"}`,
	).SetCustomPrintfEventID(0xA0)

	event, err := source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Type).To(Equal(core.EventUser))
	g.Expect(event.Message).To(Equal("before"))

	event, err = source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Type).To(Equal(core.EventType(0xA1)))

	_, err = source.ReadEvent()
	var decodeErr *core.DecodeError
	g.Expect(errors.As(err, &decodeErr)).To(BeTrue())

	_, err = source.ReadEvent()
	g.Expect(errors.Is(err, core.ErrTraceRestarted)).To(BeTrue())
	_, err = source.Restart()
	g.Expect(err).NotTo(HaveOccurred())

	event, err = source.ReadEvent()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(event.Type).To(Equal(core.EventUser))
	g.Expect(event.Message).To(Equal("after"))
}
