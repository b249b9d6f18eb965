package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/ironloom/ecs"
	"github.com/stretchr/testify/require"
)

func TestHostStatsSystemPopulatesResource(t *testing.T) {
	world := ecs.NewWorld()
	app := ecs.NewApp(world)
	sched := app.AddSchedule("monitoring")
	require.NoError(t, sched.AddSystem(ecs.HostStatsSystem{SampleWindow: time.Millisecond}))

	require.NoError(t, app.Tick(context.Background(), 16*time.Millisecond))

	stats, ok := ecs.ReadResource[ecs.HostStats](world)
	require.True(t, ok, "expected HostStats resource after one tick")
	require.GreaterOrEqual(t, stats.CPUPercent, 0.0)
	require.Greater(t, stats.MemoryTotal, uint64(0))
	require.False(t, stats.SampledAt.IsZero())
}
