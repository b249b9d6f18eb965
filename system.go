package ecs

import "context"

// SystemFunc adapts a plain function plus a fixed SystemDescriptor into a
// System, for callers who don't want to declare a named type per system.
type SystemFunc struct {
	desc SystemDescriptor
	fn   func(context.Context, SystemContext) SystemResult
}

// NewSystemFunc builds a System from a descriptor and run function.
func NewSystemFunc(desc SystemDescriptor, fn func(context.Context, SystemContext) SystemResult) *SystemFunc {
	return &SystemFunc{desc: desc, fn: fn}
}

func (s *SystemFunc) Descriptor() SystemDescriptor { return s.desc }

func (s *SystemFunc) Run(ctx context.Context, exec SystemContext) SystemResult {
	return s.fn(ctx, exec)
}

var _ System = (*SystemFunc)(nil)

// systemBuilder configures ordering and set membership for a system before
// it's added to a schedule.
type systemBuilder struct {
	system System
	before []string
	after  []string
	sets   []SetID
}

// SystemsBuilder starts a fluent chain configuring one system's placement.
func SystemsBuilder(sys System) *systemBuilder {
	return &systemBuilder{system: sys}
}

func (b *systemBuilder) Before(names ...string) *systemBuilder {
	b.before = append(b.before, names...)
	return b
}

func (b *systemBuilder) After(names ...string) *systemBuilder {
	b.after = append(b.after, names...)
	return b
}

func (b *systemBuilder) InSet(sets ...SetID) *systemBuilder {
	b.sets = append(b.sets, sets...)
	return b
}

func (b *systemBuilder) resolve() System {
	desc := b.system.Descriptor()
	desc.Before = append(append([]string(nil), desc.Before...), b.before...)
	desc.After = append(append([]string(nil), desc.After...), b.after...)
	desc.InSets = append(append([]SetID(nil), desc.InSets...), b.sets...)
	return &configuredSystem{System: b.system, desc: desc}
}

type configuredSystem struct {
	System
	desc SystemDescriptor
}

func (c *configuredSystem) Descriptor() SystemDescriptor { return c.desc }

// noopLogger is used until a real logger is supplied.
type noopLogger struct{}

func (noopLogger) With(string, any) Logger   { return noopLogger{} }
func (noopLogger) Debug(string, ...any)      {}
func (noopLogger) Info(string, ...any)       {}
func (noopLogger) Warn(string, ...any)       {}
func (noopLogger) Error(string, ...any)      {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, name string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetTag(string, any) {}
func (noopSpan) End()               {}

type noopObserver struct{}

func (noopObserver) StageCompleted(StageSummary) {}
