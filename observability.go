package ecs

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// zerologLogger adapts zerolog.Logger to the Logger interface. Grounded on
// the structured-logging stack used across the sibling services in this
// repository's corpus.
type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger builds a Logger writing structured JSON to w (stderr if
// w is nil).
func NewZerologLogger(w *os.File) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &zerologLogger{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *zerologLogger) With(key string, value any) Logger {
	return &zerologLogger{log: l.log.With().Interface(key, value).Logger()}
}

func (l *zerologLogger) Debug(msg string, args ...any) { l.event(l.log.Debug(), msg, args) }
func (l *zerologLogger) Info(msg string, args ...any)  { l.event(l.log.Info(), msg, args) }
func (l *zerologLogger) Warn(msg string, args ...any)  { l.event(l.log.Warn(), msg, args) }
func (l *zerologLogger) Error(msg string, args ...any) { l.event(l.log.Error(), msg, args) }

func (l *zerologLogger) event(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}

var _ Logger = (*zerologLogger)(nil)

// uuidTracer emits one Debug log event per span start/end and tags spans with
// a UUIDv4, standing in for a full OpenTelemetry exporter.
type uuidTracer struct {
	logger Logger
}

// NewUUIDTracer builds a Tracer that logs span lifecycle through logger.
func NewUUIDTracer(logger Logger) Tracer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &uuidTracer{logger: logger}
}

func (t *uuidTracer) Start(ctx context.Context, name string) (context.Context, TraceSpan) {
	span := &uuidSpan{
		id:     uuid.NewString(),
		name:   name,
		logger: t.logger,
		start:  time.Now(),
		tags:   make(map[string]any),
	}
	span.logger.Debug("span started", "span_id", span.id, "span_name", name)
	return ctx, span
}

type uuidSpan struct {
	id     string
	name   string
	logger Logger
	start  time.Time
	tags   map[string]any
}

func (s *uuidSpan) SetTag(key string, value any) { s.tags[key] = value }

func (s *uuidSpan) End() {
	args := []any{"span_id", s.id, "span_name", s.name, "duration", time.Since(s.start)}
	for k, v := range s.tags {
		args = append(args, k, v)
	}
	s.logger.Debug("span ended", args...)
}

var _ Tracer = (*uuidTracer)(nil)

// compositeObserver fans StageCompleted out to every wrapped observer.
type compositeObserver struct {
	observers []SchedulerObserver
}

func (c compositeObserver) StageCompleted(summary StageSummary) {
	for _, observer := range c.observers {
		observer.StageCompleted(summary)
	}
}

type loggingObserver struct {
	logger Logger
}

func newLoggingObserver(logger Logger) SchedulerObserver {
	if logger == nil {
		return noopObserver{}
	}
	return loggingObserver{logger: logger}
}

func (o loggingObserver) StageCompleted(summary StageSummary) {
	l := o.logger.With("schedule", string(summary.Schedule)).With("stage", summary.Stage)
	args := []any{
		"tick", summary.Tick,
		"duration", summary.Duration,
		"systems_total", summary.SystemsTotal,
		"systems_executed", summary.SystemsExecuted,
		"systems_skipped", summary.SystemsSkipped,
		"component_reads", strings.Join(convertComponentTypes(summary.ComponentReads), ","),
		"component_writes", strings.Join(convertComponentTypes(summary.ComponentWrites), ","),
	}
	if summary.Err != nil {
		l.Error("stage completed with error", append(args, "err", summary.Err.Error())...)
		return
	}
	l.Info("stage completed", args...)
}

func convertComponentTypes(types []ComponentType) []string {
	if len(types) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		s := string(t)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// prometheusStageObserver records stage durations and system counts through
// real client_golang collectors, registered against the caller's registry
// (or prometheus.DefaultRegisterer if nil).
type prometheusStageObserver struct {
	duration *prometheus.HistogramVec
	executed *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewPrometheusStageCollector registers the engine's stage metrics against
// reg (prometheus.DefaultRegisterer if nil) and returns a
// PrometheusCollector suitable for ObservationSettings.PrometheusCollector.
func NewPrometheusStageCollector(reg prometheus.Registerer) PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &prometheusStageObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ecs",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"schedule"}),
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "stage_systems_executed_total",
			Help:      "Systems executed per stage.",
		}, []string{"schedule"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "stage_systems_skipped_total",
			Help:      "Systems skipped per stage.",
		}, []string{"schedule"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "stage_errors_total",
			Help:      "Stage error count.",
		}, []string{"schedule"}),
	}
	reg.MustRegister(o.duration, o.executed, o.skipped, o.errors)
	return o
}

func (o *prometheusStageObserver) ObserveStage(summary StageSummary) {
	label := string(summary.Schedule)
	o.duration.WithLabelValues(label).Observe(summary.Duration.Seconds())
	o.executed.WithLabelValues(label).Add(float64(summary.SystemsExecuted))
	o.skipped.WithLabelValues(label).Add(float64(summary.SystemsSkipped))
	if summary.Err != nil {
		o.errors.WithLabelValues(label).Inc()
	}
}

var _ PrometheusCollector = (*prometheusStageObserver)(nil)

type prometheusObserver struct {
	collector PrometheusCollector
}

func newPrometheusObserver(collector PrometheusCollector) SchedulerObserver {
	if collector == nil {
		return noopObserver{}
	}
	return prometheusObserver{collector: collector}
}

func (o prometheusObserver) StageCompleted(summary StageSummary) {
	o.collector.ObserveStage(summary)
}

func buildObserverChain(logger Logger, cfg InstrumentationConfig) SchedulerObserver {
	var observers []SchedulerObserver

	if cfg.Observer != nil {
		observers = append(observers, cfg.Observer)
	}

	obs := cfg.Observation
	if obs.EnableStructuredLogging {
		structuredLogger := obs.StructuredLogger
		if structuredLogger == nil {
			structuredLogger = logger
		}
		observers = append(observers, newLoggingObserver(structuredLogger))
	}

	if obs.EnablePrometheus {
		collector := obs.PrometheusCollector
		if collector == nil {
			collector = NewPrometheusStageCollector(nil)
		}
		observers = append(observers, newPrometheusObserver(collector))
	}

	if len(observers) == 0 {
		return noopObserver{}
	}
	if len(observers) == 1 {
		return observers[0]
	}
	return compositeObserver{observers: observers}
}
