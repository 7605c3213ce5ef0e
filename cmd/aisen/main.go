package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/strongdm/ai-cxdb-exceptions/internal/config"
	"github.com/strongdm/ai-cxdb-exceptions/internal/logging"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/async"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/jsonl"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/metrics"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/multi"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/noop"
	"github.com/strongdm/ai-cxdb-exceptions/pkg/aisen/sinks/stderr"
)

// options are the per-invocation flags.
type options struct {
	logType aisen.LogType
	panic   bool
	print   bool
}

func main() {
	var opts options
	var logType string
	flag.StringVar(&logType, "type", string(aisen.LogTypeException), "log type of the event read from stdin (Error, Assert, Warning, Log, Exception)")
	flag.BoolVar(&opts.panic, "panic", false, "stdin is a Go panic dump rather than a log event")
	flag.BoolVar(&opts.print, "print", false, "print the exceptions array as JSON to stdout")
	flag.Parse()
	opts.logType = aisen.LogType(logType)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Init(cfg.Log.JSON, logging.ParseLevel(cfg.Log.Level))

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read stdin: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, cfg, opts, string(input), os.Stdout, os.Stderr, logger); err != nil {
		log.Fatalf("aisen: %v", err)
	}
}

// run builds one event from input and records it through a collector
// assembled from cfg.
func run(ctx context.Context, cfg config.Config, opts options, input string, stdout, errOut io.Writer, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	sink, err := buildSink(cfg, reg, stdout, errOut, logger)
	if err != nil {
		return err
	}

	collectorOpts := []aisen.CollectorOption{
		aisen.WithSink(sink),
		aisen.WithLogger(logger),
	}
	if cfg.Scrub.Enabled {
		scrub := aisen.DefaultScrubberConfig()
		scrub.MaxMessageSize = cfg.Scrub.MaxMessageSize
		collectorOpts = append(collectorOpts, aisen.WithScrubber(scrub))
	}
	collector := aisen.NewCollector(collectorOpts...)

	event, err := buildEvent(cfg, opts, input)
	if err != nil {
		_ = collector.Close()
		return err
	}

	recordErr := collector.Record(ctx, event)
	flushErr := collector.Flush(ctx)
	closeErr := collector.Close()
	if err := errors.Join(recordErr, flushErr, closeErr); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if opts.print {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(event.Exceptions); err != nil {
			return fmt.Errorf("print exceptions: %w", err)
		}
	}

	if cfg.Sink.Metrics {
		if err := writeMetrics(reg, errOut); err != nil {
			return err
		}
	}

	logger.DebugContext(ctx, "aisen: event recorded",
		"summary", event.Summary(),
		"exceptions", event.Exceptions.Len(),
	)
	return nil
}

// buildEvent turns stdin into an unrecorded event.
func buildEvent(cfg config.Config, opts options, input string) (aisen.ErrorEvent, error) {
	if strings.TrimSpace(input) == "" {
		return aisen.ErrorEvent{}, errors.New("empty input")
	}

	if opts.panic {
		value, dump := splitPanic(input)
		return aisen.PanicEvent(value, []byte(dump)), nil
	}

	builder := aisen.NewBuilder(aisen.WithLogClassPrefix(cfg.Capture.LogClassPrefix))
	condition, trace := splitEvent(input)
	exceptions, err := builder.FromLog(aisen.LogMessage{
		Condition:  condition,
		StackTrace: trace,
		Type:       opts.logType,
	})
	if err != nil {
		return aisen.ErrorEvent{}, fmt.Errorf("build log exception: %w", err)
	}
	return aisen.ErrorEvent{
		Severity:   opts.logType.Severity(),
		ErrorType:  "log",
		Exceptions: exceptions,
	}, nil
}

// splitEvent splits a log event into the condition (everything before the
// first blank line) and the trace text after it.
func splitEvent(input string) (condition, trace string) {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	condition, trace, _ = strings.Cut(input, "\n\n")
	return strings.TrimRight(condition, "\n"), strings.Trim(trace, "\n")
}

// splitPanic extracts the panic value from the first "panic: " or
// "fatal error: " line of a crash dump. The dump itself is returned whole.
func splitPanic(input string) (value, dump string) {
	for line := range strings.Lines(input) {
		line = strings.TrimRight(line, "\r\n")
		for _, prefix := range []string{"panic: ", "fatal error: "} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				return strings.TrimSuffix(rest, " [recovered]"), input
			}
		}
	}
	return "unknown panic", input
}

// buildSink assembles the configured sink chain: base sink, optional
// severity routing, optional async queue, optional metrics.
func buildSink(cfg config.Config, reg prometheus.Registerer, stdout, errOut io.Writer, logger *slog.Logger) (aisen.Sink, error) {
	var sink aisen.Sink
	switch cfg.Sink.Kind {
	case config.SinkJSONL:
		sink = jsonl.NewJSONLSink(nopCloser{stdout})
	case config.SinkNoop:
		sink = noop.NewNoopSink()
	default:
		stderrOpts := []stderr.StderrSinkOption{stderr.WithWriter(errOut)}
		if cfg.Sink.Verbose {
			stderrOpts = append(stderrOpts, stderr.WithVerbose())
		}
		sink = stderr.NewStderrSink(stderrOpts...)
	}

	if cfg.Sink.MinSeverity != "" {
		sink = multi.NewRouter(multi.Route{
			Sink:        sink,
			MinSeverity: aisen.Severity(cfg.Sink.MinSeverity),
		})
	}

	var m *metrics.Metrics
	if cfg.Sink.Metrics {
		var err error
		m, err = metrics.New(reg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Sink.AsyncQueueSize > 0 {
		asyncOpts := []async.AsyncSinkOption{
			async.WithQueueSize(cfg.Sink.AsyncQueueSize),
			async.WithLogger(logger),
		}
		if m != nil {
			asyncOpts = append(asyncOpts, async.WithOnDropped(m.OnDropped))
		}
		sink = async.NewAsyncSink(sink, asyncOpts...)
	}

	if m != nil {
		sink = m.Wrap(sink)
	}
	return sink, nil
}

// writeMetrics prints the registry in the Prometheus text format.
func writeMetrics(reg *prometheus.Registry, w io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

// nopCloser keeps the jsonl sink from closing stdout.
type nopCloser struct {
	io.Writer
}
