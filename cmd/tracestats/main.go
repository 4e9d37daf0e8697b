package main

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"io"
	"os"
	"strconv"
	"strings"
	"tracestats/clock"
	"tracestats/core"
	"tracestats/report"
	"tracestats/source"
)

type options struct {
	configPath    string
	noEvents      bool
	userEvents    bool
	rawTimestamps bool
	format        string
	logLevel      string
	logFormat     string
	printfEventID string

	maxIntervalSamples      int
	truncationPolicy        string
	spillDir                string
	stackWarnThreshold      uint32
	tickGapThreshold        uint64
	resetIntervalsOnRestart bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printCauses(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "tracestats [flags] <path>",
		Short: "Print runtime statistics of an RTOS trace stream",
		Long: `Reads a decoded RTOS trace stream (JSON lines, "-" for stdin) and prints
per-task and per-ISR runtime statistics, an event histogram and stream health
counters. Restarted captures are folded into one report.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.BoolVar(&opts.noEvents, "no-events", false, "don't print events")
	flags.BoolVar(&opts.userEvents, "user-events", false, "only print user event strings")
	flags.StringVar(&opts.printfEventID, "custom-printf-event-id", "", "event ID (hex or decimal) to decode as user printf events")
	flags.BoolVar(&opts.rawTimestamps, "raw-timestamps", false, "only show the raw timestamp ticks on events")
	flags.StringVar(&opts.format, "format", string(report.FormatText), "report format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "warning", "log level")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.IntVar(&opts.maxIntervalSamples, "max-interval-samples", 0, "interval samples kept per context, 0 keeps all")
	flags.StringVar(&opts.truncationPolicy, "truncation-policy", string(core.TruncateKeepFirst), "keep-first or spill")
	flags.StringVar(&opts.spillDir, "spill-dir", "", "directory for the spill store, in memory when empty")
	flags.Uint32Var(&opts.stackWarnThreshold, "stack-warn-threshold", 0, "warn when a stack low-water-mark drops to this value")
	flags.Uint64Var(&opts.tickGapThreshold, "tick-gap-threshold", 0, "warn when raw timestamps jump by more than this, 0 is half the timer range")
	flags.BoolVar(&opts.resetIntervalsOnRestart, "reset-intervals-on-restart", false, "drop retained interval samples when the stream restarts")
	cmd.MarkFlagsMutuallyExclusive("no-events", "user-events")
	return cmd
}

// parseEventID accepts a decimal ID or a hex one prefixed with 0x.
func parseEventID(value string) (uint16, error) {
	base := 10
	digits := value
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		base = 16
		digits = value[2:]
	}
	id, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid event ID %q", value)
	}
	return uint16(id), nil
}

func newLogger(opts *options, w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	switch opts.logFormat {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", opts.logFormat)
	}
	return logger, nil
}

// loadConfig applies the flags the user set on top of the config file.
func loadConfig(cmd *cobra.Command, opts *options) (*core.Config, error) {
	config := core.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := core.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("max-interval-samples") {
		config.MaxIntervalSamples = opts.maxIntervalSamples
	}
	if flags.Changed("truncation-policy") {
		config.TruncationPolicy = core.TruncationPolicy(opts.truncationPolicy)
	}
	if flags.Changed("spill-dir") {
		config.SpillDir = opts.spillDir
	}
	if flags.Changed("stack-warn-threshold") {
		config.StackWarnThreshold = opts.stackWarnThreshold
	}
	if flags.Changed("tick-gap-threshold") {
		config.TickGapThreshold = opts.tickGapThreshold
	}
	if flags.Changed("reset-intervals-on-restart") {
		config.ResetIntervalsOnRestart = opts.resetIntervalsOnRestart
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(cmd *cobra.Command, opts *options, path string) error {
	stdout := cmd.OutOrStdout()
	logger, err := newLogger(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	input := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open trace")
		}
		defer f.Close()
		input = f
	}
	src, err := source.NewJSONLines(input)
	if err != nil {
		return errors.Wrapf(err, "read trace %s", path)
	}
	if opts.printfEventID != "" {
		id, err := parseEventID(opts.printfEventID)
		if err != nil {
			return err
		}
		src.SetCustomPrintfEventID(id)
	}

	store, err := core.OpenSampleStore(config, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	textReport := format == report.FormatText && !opts.userEvents
	if textReport {
		writeMetadata(stdout, src.Metadata())
	}

	analyzer := core.NewAnalyzer(src, config, store, logger)
	if !opts.noEvents {
		analyzer.SetObserver(eventPrinter(stdout, opts, format))
	}
	result, err := analyzer.Run()
	if err != nil {
		return errors.Wrapf(err, "analyze %s", path)
	}
	if opts.userEvents {
		return nil
	}
	if textReport {
		fmt.Fprintln(stdout)
	}

	rep, err := report.Build(result, result.Metadata.Symbols, result.Metadata.Timestamp.Frequency)
	if err != nil {
		return errors.Wrap(err, "build report")
	}
	return report.Write(stdout, rep, format)
}

// eventPrinter prints events as they are analyzed. JSON reports only get
// user events so that stdout stays parseable when they are not requested.
func eventPrinter(w io.Writer, opts *options, format report.Format) core.EventObserver {
	return func(event core.Event, tick clock.Tick, frequency clock.Frequency) {
		if !opts.userEvents && format == report.FormatJSON {
			return
		}
		if opts.userEvents && event.Type != core.EventUser {
			return
		}
		fmt.Fprint(w, timestampPrefix(tick, frequency, opts.rawTimestamps))
		if opts.userEvents {
			fmt.Fprintln(w, event.Message)
			return
		}
		fmt.Fprintf(w, "%s : %s : %d\n", event.Type, event, event.Count)
	}
}

func timestampPrefix(tick clock.Tick, frequency clock.Frequency, raw bool) string {
	if raw {
		return fmt.Sprintf("[%d] ", uint64(tick))
	}
	duration, ok := frequency.Duration(tick)
	if !ok {
		return ""
	}
	ms := duration.Milliseconds()
	return fmt.Sprintf("[%d.%03d] ", ms/1000, ms%1000)
}

func writeMetadata(w io.Writer, metadata core.Metadata) {
	header := metadata.Header
	ts := metadata.Timestamp
	fmt.Fprintf(w, "Protocol: %s\n", metadata.Protocol)
	fmt.Fprintln(w, "Header")
	fmt.Fprintf(w, "  - Endianness: %s\n", header.Endianness)
	fmt.Fprintf(w, "  - Format version: %d\n", header.FormatVersion)
	fmt.Fprintf(w, "  - Kernel version: %s\n", header.KernelVersion)
	fmt.Fprintf(w, "  - Kernel port: %s\n", header.KernelPort)
	fmt.Fprintf(w, "  - Options: 0x%X\n", header.Options)
	fmt.Fprintf(w, "  - IRQ priority order: %d\n", header.IRQPriorityOrder)
	fmt.Fprintf(w, "  - Cores: %d\n", header.NumCores)
	fmt.Fprintf(w, "  - ISR tail chaining threshold: %d\n", header.ISRTailChainingThreshold)
	fmt.Fprintf(w, "  - Platform config: %s\n", header.PlatformConfig)
	fmt.Fprintf(w, "  - Platform config version: %s\n", header.PlatformConfigVersion)
	fmt.Fprintln(w, "Timestamp Info")
	fmt.Fprintf(w, "  - Timer type: %s\n", ts.TimerType)
	fmt.Fprintf(w, "  - Timer frequency: %d\n", ts.Frequency)
	fmt.Fprintf(w, "  - Timer period: %d\n", ts.Period)
	fmt.Fprintf(w, "  - Timer wraparounds: %d\n", ts.Wraparounds)
	fmt.Fprintf(w, "  - OS tick rate Hz: %d\n", ts.OSTickRateHz)
	fmt.Fprintf(w, "  - Latest timestamp: %d\n", ts.LatestTimestamp)
	fmt.Fprintf(w, "  - OS tick count: %d\n", ts.OSTickCount)
	fmt.Fprintln(w)
}

// printCauses prints err followed by each distinct error it wraps.
func printCauses(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	last := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		if msg := cause.Error(); msg != last {
			fmt.Fprintf(w, "Caused by: %s\n", msg)
			last = msg
		}
	}
}
