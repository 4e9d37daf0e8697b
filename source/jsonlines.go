package source

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"io"
	"strings"
	"tracestats/clock"
	"tracestats/core"
)

const schemaURL = "https://tracestats.dev/schema/trace.json"

//go:embed schema.json
var schemaDocument string

type schemas struct {
	header  *jsonschema.Schema
	restart *jsonschema.Schema
	event   *jsonschema.Schema
}

func compileSchemas() (*schemas, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaDocument)); err != nil {
		return nil, errors.Wrap(err, "add schema resource")
	}
	compiled := &schemas{}
	for name, target := range map[string]**jsonschema.Schema{
		"header":  &compiled.header,
		"restart": &compiled.restart,
		"event":   &compiled.event,
	} {
		schema, err := compiler.Compile(schemaURL + "#/$defs/" + name)
		if err != nil {
			return nil, errors.Wrapf(err, "compile %s schema", name)
		}
		*target = schema
	}
	return compiled, nil
}

type headerRecord struct {
	Protocol  string          `json:"protocol"`
	Header    headerInfo      `json:"header"`
	Timestamp timestampRecord `json:"timestamp"`
	TickBits  uint            `json:"tick_bits"`
	Symbols   []symbolRecord  `json:"symbols"`
}

type headerInfo struct {
	Endianness               string `json:"endianness"`
	FormatVersion            uint16 `json:"format_version"`
	KernelVersion            string `json:"kernel_version"`
	KernelPort               string `json:"kernel_port"`
	Options                  uint32 `json:"options"`
	IRQPriorityOrder         uint32 `json:"irq_priority_order"`
	NumCores                 uint32 `json:"num_cores"`
	ISRTailChainingThreshold uint32 `json:"isr_tail_chaining_threshold"`
	PlatformConfig           string `json:"platform_config"`
	PlatformConfigVersion    string `json:"platform_config_version"`
}

type timestampRecord struct {
	TimerType       string `json:"timer_type"`
	Frequency       uint32 `json:"frequency"`
	Period          uint32 `json:"period"`
	Wraparounds     uint32 `json:"wraparounds"`
	OSTickRateHz    uint32 `json:"os_tick_rate_hz"`
	LatestTimestamp uint32 `json:"latest_timestamp"`
	OSTickCount     uint32 `json:"os_tick_count"`
}

type symbolRecord struct {
	Handle uint32 `json:"handle"`
	Class  string `json:"class"`
	Symbol string `json:"symbol"`
}

type restartRecord struct {
	Restart headerRecord `json:"restart"`
}

type eventRecord struct {
	Type      string  `json:"type"`
	ID        *uint16 `json:"id"`
	Timestamp uint32  `json:"timestamp"`
	Count     uint16  `json:"count"`
	Handle    uint32  `json:"handle"`
	Priority  uint32  `json:"priority"`
	LowMark   uint32  `json:"low_mark"`
	Message   string  `json:"message"`
}

func (record headerRecord) metadata() core.Metadata {
	symbols := core.NewSymbolTable()
	for _, symbol := range record.Symbols {
		symbols.Insert(core.ObjectHandle(symbol.Handle), core.SymbolEntry{
			Class:  symbol.Class,
			Symbol: symbol.Symbol,
		})
	}
	return core.Metadata{
		Protocol: record.Protocol,
		Header: core.Header{
			Endianness:               record.Header.Endianness,
			FormatVersion:            record.Header.FormatVersion,
			KernelVersion:            record.Header.KernelVersion,
			KernelPort:               record.Header.KernelPort,
			Options:                  record.Header.Options,
			IRQPriorityOrder:         record.Header.IRQPriorityOrder,
			NumCores:                 record.Header.NumCores,
			ISRTailChainingThreshold: record.Header.ISRTailChainingThreshold,
			PlatformConfig:           record.Header.PlatformConfig,
			PlatformConfigVersion:    record.Header.PlatformConfigVersion,
		},
		Timestamp: core.TimestampInfo{
			TimerType:       record.Timestamp.TimerType,
			Frequency:       clock.Frequency(record.Timestamp.Frequency),
			Period:          record.Timestamp.Period,
			Wraparounds:     record.Timestamp.Wraparounds,
			OSTickRateHz:    record.Timestamp.OSTickRateHz,
			LatestTimestamp: record.Timestamp.LatestTimestamp,
			OSTickCount:     record.Timestamp.OSTickCount,
		},
		TickBits: record.TickBits,
		Symbols:  symbols,
	}
}

func (record eventRecord) event(printfID *uint16) (core.Event, error) {
	var typ core.EventType
	if printfID != nil && record.ID != nil && *record.ID == *printfID {
		if record.Type != "" && record.Type != core.EventUser.String() {
			return core.Event{}, errors.Errorf("event type %q does not match printf id 0x%03X", record.Type, *record.ID)
		}
		typ = core.EventUser
	} else if record.Type != "" {
		parsed, ok := core.ParseEventType(record.Type)
		if !ok {
			return core.Event{}, errors.Errorf("unknown event type %q", record.Type)
		}
		typ = parsed
		if record.ID != nil && core.EventType(*record.ID) != typ {
			return core.Event{}, errors.Errorf("event type %q does not match id 0x%03X", record.Type, *record.ID)
		}
	} else {
		typ = core.EventType(*record.ID)
	}
	return core.Event{
		Type:      typ,
		Timestamp: record.Timestamp,
		Count:     record.Count,
		Handle:    core.ObjectHandle(record.Handle),
		Priority:  core.Priority(record.Priority),
		LowMark:   record.LowMark,
		Message:   record.Message,
	}, nil
}

// JSONLines reads decoded events from newline-delimited JSON. The first
// record is the stream header; every later record is an event, or a
// {"restart": header} marker that starts a new session.
type JSONLines struct {
	reader   *bufio.Reader
	schemas  *schemas
	offset   int64
	metadata core.Metadata
	pending  *core.Metadata
	printfID *uint16
}

func NewJSONLines(r io.Reader) (*JSONLines, error) {
	compiled, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	source := &JSONLines{
		reader:  bufio.NewReader(r),
		schemas: compiled,
		offset:  0,
	}
	line, offset, err := source.nextLine()
	if err == io.EOF {
		return nil, errors.New("missing stream header")
	}
	if err != nil {
		return nil, err
	}
	var record headerRecord
	if err := source.decode(line, source.schemas.header, &record); err != nil {
		return nil, errors.Wrapf(err, "stream header at offset %d", offset)
	}
	source.metadata = record.metadata()
	return source, nil
}

// SetCustomPrintfEventID makes records with this event ID decode as user
// events. It stays in effect across restarts.
func (source *JSONLines) SetCustomPrintfEventID(id uint16) *JSONLines {
	source.printfID = &id
	return source
}

func (source *JSONLines) Metadata() core.Metadata {
	return source.metadata
}

func (source *JSONLines) ReadEvent() (core.Event, error) {
	line, offset, err := source.nextLine()
	if err != nil {
		return core.Event{}, err
	}

	if bytes.Contains(line, []byte(`"restart"`)) {
		var record restartRecord
		if err := source.decode(line, source.schemas.restart, &record); err == nil {
			metadata := record.Restart.metadata()
			source.pending = &metadata
			return core.Event{}, core.ErrTraceRestarted
		} else if isRestartMarker(line) {
			return core.Event{}, errors.Wrapf(err, "restart header at offset %d", offset)
		}
	}

	var record eventRecord
	if err := source.decode(line, source.schemas.event, &record); err != nil {
		return core.Event{}, &core.DecodeError{Offset: offset, Err: err}
	}
	event, err := record.event(source.printfID)
	if err != nil {
		return core.Event{}, &core.DecodeError{Offset: offset, Err: err}
	}
	return event, nil
}

// Restart returns the header carried by the restart marker that was just
// read.
func (source *JSONLines) Restart() (core.Metadata, error) {
	if source.pending == nil {
		return core.Metadata{}, errors.New("no restart pending")
	}
	source.metadata = *source.pending
	source.pending = nil
	return source.metadata, nil
}

// nextLine returns the next non-blank line and the offset it starts at.
func (source *JSONLines) nextLine() ([]byte, int64, error) {
	for {
		offset := source.offset
		line, err := source.reader.ReadBytes('\n')
		source.offset += int64(len(line))
		if err != nil && err != io.EOF {
			return nil, offset, errors.Wrapf(err, "read record at offset %d", offset)
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			return trimmed, offset, nil
		}
		if err == io.EOF {
			return nil, offset, io.EOF
		}
	}
}

func (source *JSONLines) decode(line []byte, schema *jsonschema.Schema, target interface{}) error {
	var payload interface{}
	if err := json.Unmarshal(line, &payload); err != nil {
		return errors.Wrap(err, "parse record")
	}
	if err := schema.Validate(payload); err != nil {
		return errors.Wrap(err, "validate record")
	}
	if err := json.Unmarshal(line, target); err != nil {
		return errors.Wrap(err, "decode record")
	}
	return nil
}

// isRestartMarker reports whether line is an object whose only key is
// "restart".
func isRestartMarker(line []byte) bool {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(line, &object); err != nil {
		return false
	}
	_, ok := object["restart"]
	return ok && len(object) == 1
}
