package game

import (
	"context"
	"fmt"
	"time"

	"github.com/ironloom/ecs"
	ecsstorage "github.com/ironloom/ecs/ecs/storage"
)

// Position is a unique, per-entity component: dense storage.
type Position struct {
	X, Y float64
}

// ExampleStatsPattern wires BaseStats (shared), CurrentStats (dense) and
// StatModifiers (dense) into a single App with one schedule, then runs a
// short simulation. BaseStats is immutable and archetype-scoped, so every
// zombie (or skeleton) references the same instance; CurrentStats and
// StatModifiers are unique per entity and change every tick.
func ExampleStatsPattern() {
	world := ecs.NewWorld()

	if err := world.RegisterComponent("BaseStats", ecsstorage.NewSharedStrategy()); err != nil {
		panic(err)
	}
	if err := world.RegisterComponent("CurrentStats", ecsstorage.NewDenseStrategy()); err != nil {
		panic(err)
	}
	if err := world.RegisterComponent("StatModifiers", ecsstorage.NewDenseStrategy()); err != nil {
		panic(err)
	}
	if err := world.RegisterComponent("Position", ecsstorage.NewDenseStrategy()); err != nil {
		panic(err)
	}

	app := ecs.NewApp(world)
	gameplay := app.AddSchedule("gameplay")
	if err := gameplay.AddSystems(
		HealthSystem{},
		CombatSystem{},
		ModifierCleanupSystem{},
		StatsDisplaySystem{},
	); err != nil {
		panic(err)
	}

	fmt.Println("Creating 100 zombies with shared base stats...")
	var zombieIDs []ecs.Entity
	for i := 0; i < 100; i++ {
		id := world.CreateEntity()
		zombieIDs = append(zombieIDs, id)
		world.Defer(ecs.NewAddComponentCommand(id, "BaseStats", ZombieBaseStats))
		world.Defer(ecs.NewAddComponentCommand(id, "CurrentStats", CurrentStats{
			CurrentHealth: ZombieBaseStats.MaxHealth,
			IsDead:        false,
		}))
		world.Defer(ecs.NewAddComponentCommand(id, "Position", Position{
			X: float64(i * 10),
			Y: float64(i % 10),
		}))
	}

	fmt.Println("Creating 50 skeletons with shared base stats...")
	for i := 0; i < 50; i++ {
		id := world.CreateEntity()
		world.Defer(ecs.NewAddComponentCommand(id, "BaseStats", SkeletonBaseStats))
		world.Defer(ecs.NewAddComponentCommand(id, "CurrentStats", CurrentStats{
			CurrentHealth: SkeletonBaseStats.MaxHealth,
			IsDead:        false,
		}))
		world.Defer(ecs.NewAddComponentCommand(id, "Position", Position{
			X: float64(i * 15),
			Y: 100.0,
		}))
	}

	fmt.Println("Creating 1 boss with unique base stats...")
	bossID := world.CreateEntity()
	world.Defer(ecs.NewAddComponentCommand(bossID, "BaseStats", BossBaseStats))
	world.Defer(ecs.NewAddComponentCommand(bossID, "CurrentStats", CurrentStats{
		CurrentHealth: BossBaseStats.MaxHealth,
		IsDead:        false,
	}))
	world.Defer(ecs.NewAddComponentCommand(bossID, "Position", Position{X: 500, Y: 500}))

	if err := world.Update(); err != nil {
		panic(err)
	}

	fmt.Println("\n151 entities created, 3 unique BaseStats instances in memory (zombie, skeleton, boss)")

	fmt.Println("\n=== Damaging a zombie ===")
	statsView, _ := world.ViewComponent("CurrentStats")
	if len(zombieIDs) > 0 {
		current, _ := statsView.Get(zombieIDs[0])
		stats := current.(CurrentStats)
		before := stats.CurrentHealth
		stats.CurrentHealth -= 20
		world.Defer(ecs.NewAddComponentCommand(zombieIDs[0], "CurrentStats", stats))
		if err := world.Update(); err != nil {
			panic(err)
		}
		fmt.Printf("zombie %v health %d -> %d\n", zombieIDs[0], before, stats.CurrentHealth)
	}
	if len(zombieIDs) > 1 {
		current, _ := statsView.Get(zombieIDs[1])
		fmt.Printf("zombie %v unaffected, still at %d health\n", zombieIDs[1], current.(CurrentStats).CurrentHealth)
	}

	fmt.Println("\n=== Applying a buff to one zombie ===")
	if len(zombieIDs) > 0 {
		buffed := zombieIDs[0]
		strengthBuff := StatModifiers{
			Modifiers: []StatModifier{{
				Type:      ModifierTypeAttackMultiplier,
				Value:     2.0,
				ExpiresAt: time.Now().Add(30 * time.Second),
				Source:    "strength_potion",
			}},
		}
		world.Defer(ecs.NewAddComponentCommand(buffed, "StatModifiers", strengthBuff))
		if err := world.Update(); err != nil {
			panic(err)
		}

		baseView, _ := world.ViewComponent("BaseStats")
		modView, _ := world.ViewComponent("StatModifiers")
		base, _ := baseView.Get(buffed)
		mod, _ := modView.Get(buffed)
		baseStats := base.(BaseStats)
		mods := mod.(StatModifiers)
		fmt.Printf("zombie %v base attack %d, effective attack with buff %d\n",
			buffed, baseStats.BaseAttackDamage, GetEffectiveAttack(baseStats, &mods))
	}

	fmt.Println("\n=== Running simulation ===")
	if err := app.Run(context.Background(), 3, 16*time.Millisecond); err != nil {
		panic(err)
	}
}

// ExampleUpgradingEntityArchetype demonstrates retargeting a shared component
// reference: swapping a zombie's BaseStats out for a boss's leaves every
// other zombie's BaseStats reference untouched.
func ExampleUpgradingEntityArchetype() {
	world := ecs.NewWorld()
	if err := world.RegisterComponent("BaseStats", ecsstorage.NewSharedStrategy()); err != nil {
		panic(err)
	}
	if err := world.RegisterComponent("CurrentStats", ecsstorage.NewDenseStrategy()); err != nil {
		panic(err)
	}

	zombieID := world.CreateEntity()
	world.Defer(ecs.NewAddComponentCommand(zombieID, "BaseStats", ZombieBaseStats))
	world.Defer(ecs.NewAddComponentCommand(zombieID, "CurrentStats", CurrentStats{
		CurrentHealth: ZombieBaseStats.MaxHealth,
	}))
	if err := world.Update(); err != nil {
		panic(err)
	}
	fmt.Printf("created zombie with base attack %d\n", ZombieBaseStats.BaseAttackDamage)

	world.Defer(ecs.NewRemoveComponentCommand(zombieID, "BaseStats"))
	world.Defer(ecs.NewAddComponentCommand(zombieID, "BaseStats", BossBaseStats))
	world.Defer(ecs.NewAddComponentCommand(zombieID, "CurrentStats", CurrentStats{
		CurrentHealth: BossBaseStats.MaxHealth,
	}))
	if err := world.Update(); err != nil {
		panic(err)
	}

	baseView, _ := world.ViewComponent("BaseStats")
	base, _ := baseView.Get(zombieID)
	fmt.Printf("upgraded to boss archetype, new base attack %d\n", base.(BaseStats).BaseAttackDamage)
}
