package core

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"io"
	"sort"
	"tracestats/clock"
	"tracestats/sequence"
	"tracestats/stats"
)

// EventObserver sees every accepted event together with its reconstructed
// tick and the timer frequency of the current session.
type EventObserver func(event Event, tick clock.Tick, frequency clock.Frequency)

// EventTypeStats is one row of the event-type histogram.
type EventTypeStats struct {
	Type     EventType
	Arrivals *stats.ArrivalStatistics
}

func (typeStats *EventTypeStats) Count() uint64 {
	return typeStats.Arrivals.NumArrivals
}

// Result is the state of an analysis once its source is exhausted.
type Result struct {
	// Metadata of the last session.
	Metadata          Metadata
	Events            uint64
	DroppedEvents     uint64
	Restarts          int
	SessionBoundaries []clock.Tick
	FinalTick         clock.Tick
	GrandTotal        clock.Tick
	Unattributed      uint64
	Histogram         []*EventTypeStats
	Contexts          []*ContextRecord
	Stacks            *StackTracker
	Diagnostics       *Diagnostics
}

// Analyzer drives the statistics engine over one Source. It is not safe for
// concurrent use.
type Analyzer struct {
	config   *Config
	logger   logrus.FieldLogger
	source   Source
	metadata Metadata
	observer EventObserver

	instant     *clock.Instant
	sequence    *sequence.Tracker
	accumulator *Accumulator
	stacks      *StackTracker
	sessions    *Sessions
	histogram   map[EventType]*EventTypeStats
	diagnostics *Diagnostics

	sessionStarted bool
	eventCount     uint64
}

func NewAnalyzer(source Source, config *Config, store *SampleStore, logger logrus.FieldLogger) *Analyzer {
	metadata := source.Metadata()
	return &Analyzer{
		config:         config,
		logger:         logger,
		source:         source,
		metadata:       metadata,
		observer:       nil,
		instant:        clock.NewInstant(metadata.TimerBits()).SetGapThreshold(config.TickGapThreshold),
		sequence:       sequence.NewTracker(config.SequenceBits),
		accumulator:    NewAccumulator(config, store),
		stacks:         NewStackTracker(),
		sessions:       NewSessions(),
		histogram:      make(map[EventType]*EventTypeStats),
		diagnostics:    NewDiagnostics(),
		sessionStarted: false,
		eventCount:     0,
	}
}

func (analyzer *Analyzer) SetObserver(observer EventObserver) *Analyzer {
	analyzer.observer = observer
	return analyzer
}

// Run consumes the source to exhaustion. Restarts and per-event problems are
// handled in place; only source failures and spill store failures stop it.
func (analyzer *Analyzer) Run() (*Result, error) {
	for {
		event, err := analyzer.source.ReadEvent()
		if err != nil {
			var decodeErr *DecodeError
			switch {
			case errors.Is(err, io.EOF):
				return analyzer.Finish()
			case errors.Is(err, ErrTraceRestarted):
				if err := analyzer.Restart(); err != nil {
					return nil, err
				}
			case errors.As(err, &decodeErr):
				analyzer.diagnostics.Add(DiagnosticDecodeError)
				analyzer.logger.WithField("offset", decodeErr.Offset).Error(decodeErr.Err)
			default:
				return nil, errors.Wrap(err, "read event")
			}
			continue
		}
		if err := analyzer.Process(event); err != nil {
			return nil, err
		}
	}
}

// Process feeds one decoded event through the engine.
func (analyzer *Analyzer) Process(event Event) error {
	var reading clock.Reading
	if !analyzer.sessionStarted {
		analyzer.sequence.SetInitialCount(event.Count)
		analyzer.instant.Initialize(event.Timestamp, analyzer.metadata.Timestamp.Wraparounds)
		analyzer.sessionStarted = true
		reading = clock.Reading{Tick: analyzer.instant.Now()}
		analyzer.accumulator.Start(reading.Tick)
	} else {
		var err error
		reading, err = analyzer.instant.Elapsed(event.Timestamp)
		if err != nil {
			return errors.Wrap(err, "reconstruct timestamp")
		}
		if dropped := analyzer.sequence.Update(event.Count); dropped > 0 {
			analyzer.diagnostics.Add(DiagnosticDroppedEvents)
			analyzer.logger.WithFields(logrus.Fields{
				"event_count":    event.Count,
				"dropped_events": dropped,
			}).Warn("Dropped events detected")
		}
		if reading.Suspect {
			analyzer.diagnostics.Add(DiagnosticTickGap)
			analyzer.logger.WithFields(logrus.Fields{
				"event_count": event.Count,
				"gap":         reading.Gap,
				"tick":        uint64(reading.Tick),
			}).Warn("Timestamp gap may hide timer wraparounds")
		}
	}
	tick := reading.Tick

	analyzer.eventCount++
	analyzer.typeStats(event.Type).Arrivals.Append(uint64(tick))
	if analyzer.observer != nil {
		analyzer.observer(event, tick, analyzer.metadata.Timestamp.Frequency)
	}

	if context, ok := event.Context(); ok {
		err := analyzer.accumulator.OnSwitch(context, tick, event.Priority)
		if err := analyzer.checkSwitch(err, event.Count); err != nil {
			return err
		}
	}

	if event.Type == EventUnusedStack {
		analyzer.stacks.Observe(event.Handle, event.LowMark)
		threshold := analyzer.config.StackWarnThreshold
		if threshold > 0 && event.LowMark <= threshold {
			analyzer.diagnostics.Add(DiagnosticStackLow)
			analyzer.logger.WithFields(logrus.Fields{
				"handle":    event.Handle,
				"low_mark":  event.LowMark,
				"threshold": threshold,
			}).Warn("Stack low-water-mark at or below threshold")
		}
	}
	return nil
}

func (analyzer *Analyzer) checkSwitch(err error, count uint16) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimestampBackwards) {
		analyzer.diagnostics.Add(DiagnosticBackwardsTimestamp)
		analyzer.logger.WithField("event_count", count).Warn(err)
		return nil
	}
	return errors.Wrap(err, "account context switch")
}

// Restart closes the current session and picks up the metadata of the next
// one from the source.
func (analyzer *Analyzer) Restart() error {
	final := analyzer.instant.Now()
	if err := analyzer.checkSwitch(analyzer.accumulator.Close(final), 0); err != nil {
		return err
	}
	analyzer.sessions.OnRestart(final)
	analyzer.sessionStarted = false
	analyzer.sequence.Reset()
	analyzer.accumulator.ResetActive()
	if analyzer.config.ResetIntervalsOnRestart {
		if err := analyzer.accumulator.ResetSamples(); err != nil {
			return err
		}
	}
	for _, typeStats := range analyzer.histogram {
		typeStats.Arrivals.Rebase()
	}

	metadata, err := analyzer.source.Restart()
	if err != nil {
		return errors.Wrap(err, "read header of restarted stream")
	}
	analyzer.metadata = metadata
	if metadata.TimerBits() == analyzer.instant.Bits() {
		analyzer.instant.Reset()
	} else {
		analyzer.instant = clock.NewInstant(metadata.TimerBits()).SetGapThreshold(analyzer.config.TickGapThreshold)
	}

	analyzer.logger.WithFields(logrus.Fields{
		"restarts":   analyzer.sessions.Restarts(),
		"final_tick": uint64(final),
	}).Warn("Detected a restarted trace stream")
	return nil
}

// Finish closes the running interval at the last reconstructed tick and
// returns the result. Run calls it at the end of the stream.
func (analyzer *Analyzer) Finish() (*Result, error) {
	final := analyzer.instant.Now()
	if err := analyzer.checkSwitch(analyzer.accumulator.Close(final), 0); err != nil {
		return nil, err
	}

	histogram := make([]*EventTypeStats, 0, len(analyzer.histogram))
	for _, typeStats := range analyzer.histogram {
		histogram = append(histogram, typeStats)
	}
	sort.Slice(histogram, func(i, j int) bool { return histogram[i].Type < histogram[j].Type })

	return &Result{
		Metadata:          analyzer.metadata,
		Events:            analyzer.eventCount,
		DroppedEvents:     analyzer.sequence.Total(),
		Restarts:          analyzer.sessions.Restarts(),
		SessionBoundaries: analyzer.sessions.Boundaries(),
		FinalTick:         final,
		GrandTotal:        analyzer.sessions.GrandTotal(final),
		Unattributed:      analyzer.accumulator.Unattributed(),
		Histogram:         histogram,
		Contexts:          analyzer.accumulator.Records(),
		Stacks:            analyzer.stacks,
		Diagnostics:       analyzer.diagnostics,
	}, nil
}

func (analyzer *Analyzer) typeStats(typ EventType) *EventTypeStats {
	typeStats, ok := analyzer.histogram[typ]
	if !ok {
		typeStats = &EventTypeStats{Type: typ, Arrivals: stats.NewArrivalStatistics()}
		analyzer.histogram[typ] = typeStats
	}
	return typeStats
}
