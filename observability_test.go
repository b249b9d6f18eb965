package ecs

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusStageCollectorRegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusStageCollector(reg)

	collector.ObserveStage(StageSummary{
		Schedule:        "main",
		Stage:           0,
		Tick:            42,
		Duration:        5 * time.Millisecond,
		SystemsTotal:    2,
		SystemsExecuted: 2,
	})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"ecs_stage_duration_seconds",
		"ecs_stage_systems_executed_total",
		"ecs_stage_systems_skipped_total",
		"ecs_stage_errors_total",
	} {
		if !names[want] {
			t.Fatalf("expected metric family %s, got %v", want, names)
		}
	}
}

type capturingLogger struct {
	events []string
}

func (l *capturingLogger) With(string, any) Logger { return l }
func (l *capturingLogger) Debug(msg string, _ ...any) {
	l.events = append(l.events, msg)
}
func (l *capturingLogger) Info(msg string, _ ...any) {
	l.events = append(l.events, msg)
}
func (l *capturingLogger) Warn(string, ...any) {}
func (l *capturingLogger) Error(msg string, _ ...any) {
	l.events = append(l.events, msg)
}

func TestUUIDTracerEmitsStartAndEndEvents(t *testing.T) {
	logger := &capturingLogger{}
	tracer := NewUUIDTracer(logger)

	_, span := tracer.Start(context.Background(), "stage:main")
	span.SetTag("tick", uint64(1))
	span.End()

	if len(logger.events) != 2 {
		t.Fatalf("expected 2 log events (start, end), got %d: %v", len(logger.events), logger.events)
	}
	if logger.events[0] != "span started" || logger.events[1] != "span ended" {
		t.Fatalf("unexpected event sequence: %v", logger.events)
	}
}

func TestLoggingObserverReportsStageOutcome(t *testing.T) {
	logger := &capturingLogger{}
	observer := newLoggingObserver(logger)

	observer.StageCompleted(StageSummary{Schedule: "main", Stage: 0, SystemsExecuted: 1})
	if len(logger.events) != 1 || logger.events[0] != "stage completed" {
		t.Fatalf("expected a single 'stage completed' event, got %v", logger.events)
	}

	observer.StageCompleted(StageSummary{Schedule: "main", Stage: 1, Err: errSentinel})
	if len(logger.events) != 2 || logger.events[1] != "stage completed with error" {
		t.Fatalf("expected a follow-up error event, got %v", logger.events)
	}
}

var errSentinel = &sentinelErr{}

type sentinelErr struct{}

func (*sentinelErr) Error() string { return "sentinel" }
