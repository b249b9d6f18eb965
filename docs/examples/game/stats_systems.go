package game

import (
	"context"
	"time"

	"github.com/ironloom/ecs"
)

// HealthSystem manages entity health, death, and regeneration.
// It reads BaseStats (shared) and modifies CurrentStats (unique per entity).
type HealthSystem struct{}

func (HealthSystem) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{
		Name:         "health",
		Reads:        []ecs.ComponentType{"BaseStats", "StatModifiers"},
		Writes:       []ecs.ComponentType{"CurrentStats"},
		RunEvery:     ecs.TickInterval{Every: 1},
		AsyncAllowed: false,
	}
}

func (HealthSystem) Run(ctx context.Context, exec ecs.SystemContext) ecs.SystemResult {
	baseStatsView, ok := exec.World().ViewComponent("BaseStats")
	if !ok {
		return ecs.SystemResult{}
	}

	currentStatsView, ok := exec.World().ViewComponent("CurrentStats")
	if !ok {
		return ecs.SystemResult{}
	}

	modifiersView, _ := exec.World().ViewComponent("StatModifiers")

	currentStatsView.Iterate(func(id ecs.Entity, component any) bool {
		current := component.(CurrentStats)

		if current.IsDead {
			return true
		}

		baseComponent, hasBase := baseStatsView.Get(id)
		if !hasBase {
			return true
		}
		base := baseComponent.(BaseStats)

		var mods *StatModifiers
		if modifiersView != nil {
			if modComponent, hasMods := modifiersView.Get(id); hasMods {
				m := modComponent.(StatModifiers)
				mods = &m
			}
		}

		if mods != nil {
			for _, mod := range mods.Modifiers {
				if mod.Type == ModifierTypeHealthRegen {
					current.CurrentHealth += int(mod.Value)
					if current.CurrentHealth > base.MaxHealth {
						current.CurrentHealth = base.MaxHealth
					}
				}
			}
		}

		if current.CurrentHealth <= 0 {
			current.IsDead = true
			current.CurrentHealth = 0
			exec.Logger().Info("entity died", "entity", id)
		}

		exec.Defer(ecs.NewAddComponentCommand(id, "CurrentStats", current))
		return true
	})

	return ecs.SystemResult{}
}

// CombatSystem handles damage calculation using base stats and modifiers.
type CombatSystem struct{}

func (CombatSystem) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{
		Name:         "combat",
		Reads:        []ecs.ComponentType{"BaseStats", "StatModifiers", "CurrentStats", "Position"},
		Writes:       []ecs.ComponentType{"CurrentStats"},
		RunEvery:     ecs.TickInterval{Every: 60},
		AsyncAllowed: false,
	}
}

func (CombatSystem) Run(ctx context.Context, exec ecs.SystemContext) ecs.SystemResult {
	baseStatsView, _ := exec.World().ViewComponent("BaseStats")
	modifiersView, _ := exec.World().ViewComponent("StatModifiers")
	currentStatsView, ok := exec.World().ViewComponent("CurrentStats")
	if !ok {
		return ecs.SystemResult{}
	}
	positionView, _ := exec.World().ViewComponent("Position")
	if baseStatsView == nil || positionView == nil {
		return ecs.SystemResult{}
	}

	var entities []ecs.Entity
	currentStatsView.Iterate(func(id ecs.Entity, _ any) bool {
		entities = append(entities, id)
		return true
	})

	for i := 0; i < len(entities); i++ {
		attackerID := entities[i]

		attackerCurrent, ok := currentStatsView.Get(attackerID)
		if !ok {
			continue
		}
		attackerCurrentStats := attackerCurrent.(CurrentStats)
		if attackerCurrentStats.IsDead {
			continue
		}

		attackerBase, ok := baseStatsView.Get(attackerID)
		if !ok {
			continue
		}
		attackerBaseStats := attackerBase.(BaseStats)

		var attackerMods *StatModifiers
		if modifiersView != nil {
			if modComponent, hasMods := modifiersView.Get(attackerID); hasMods {
				m := modComponent.(StatModifiers)
				attackerMods = &m
			}
		}

		attackerPos, hasPos := positionView.Get(attackerID)
		if !hasPos {
			continue
		}
		attackerPosition := attackerPos.(Position)

		for j := 0; j < len(entities); j++ {
			if i == j {
				continue
			}

			targetID := entities[j]

			targetPos, hasTargetPos := positionView.Get(targetID)
			if !hasTargetPos {
				continue
			}
			targetPosition := targetPos.(Position)

			dx := attackerPosition.X - targetPosition.X
			dy := attackerPosition.Y - targetPosition.Y
			distSq := dx*dx + dy*dy
			if distSq > 100.0 {
				continue
			}

			targetCurrent, ok := currentStatsView.Get(targetID)
			if !ok {
				continue
			}
			targetCurrentStats := targetCurrent.(CurrentStats)
			if targetCurrentStats.IsDead {
				continue
			}

			targetBase, ok := baseStatsView.Get(targetID)
			if !ok {
				continue
			}
			targetBaseStats := targetBase.(BaseStats)

			var targetMods *StatModifiers
			if modifiersView != nil {
				if modComponent, hasMods := modifiersView.Get(targetID); hasMods {
					m := modComponent.(StatModifiers)
					targetMods = &m
				}
			}

			effectiveAttack := GetEffectiveAttack(attackerBaseStats, attackerMods)
			effectiveDefense := GetEffectiveDefense(targetBaseStats, targetMods)

			damage := effectiveAttack - effectiveDefense
			if damage < 1 {
				damage = 1
			}

			targetCurrentStats.CurrentHealth -= damage
			exec.Logger().Info("combat",
				"attacker", attackerID,
				"target", targetID,
				"damage", damage,
				"remaining_health", targetCurrentStats.CurrentHealth,
			)

			exec.Defer(ecs.NewAddComponentCommand(targetID, "CurrentStats", targetCurrentStats))
			break
		}
	}

	return ecs.SystemResult{}
}

// ModifierCleanupSystem removes expired stat modifiers.
type ModifierCleanupSystem struct{}

func (ModifierCleanupSystem) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{
		Name:         "modifier_cleanup",
		Reads:        []ecs.ComponentType{},
		Writes:       []ecs.ComponentType{"StatModifiers"},
		RunEvery:     ecs.TickInterval{Every: 10},
		AsyncAllowed: true,
	}
}

func (ModifierCleanupSystem) Run(ctx context.Context, exec ecs.SystemContext) ecs.SystemResult {
	modifiersView, ok := exec.World().ViewComponent("StatModifiers")
	if !ok {
		return ecs.SystemResult{}
	}

	now := time.Now()

	modifiersView.Iterate(func(id ecs.Entity, component any) bool {
		mods := component.(StatModifiers)

		if mods.RemoveExpired(now) {
			exec.Logger().Info("expired modifiers removed", "entity", id)
			exec.Defer(ecs.NewAddComponentCommand(id, "StatModifiers", mods))
		}

		return true
	})

	return ecs.SystemResult{}
}

// StatsDisplaySystem logs entity stats for debugging.
type StatsDisplaySystem struct{}

func (StatsDisplaySystem) Descriptor() ecs.SystemDescriptor {
	return ecs.SystemDescriptor{
		Name:         "stats_display",
		Reads:        []ecs.ComponentType{"BaseStats", "CurrentStats", "StatModifiers"},
		Writes:       []ecs.ComponentType{},
		RunEvery:     ecs.TickInterval{Every: 100},
		AsyncAllowed: true,
	}
}

func (StatsDisplaySystem) Run(ctx context.Context, exec ecs.SystemContext) ecs.SystemResult {
	baseStatsView, ok := exec.World().ViewComponent("BaseStats")
	if !ok {
		return ecs.SystemResult{}
	}
	currentStatsView, ok := exec.World().ViewComponent("CurrentStats")
	if !ok {
		return ecs.SystemResult{}
	}
	modifiersView, _ := exec.World().ViewComponent("StatModifiers")

	currentStatsView.Iterate(func(id ecs.Entity, component any) bool {
		current := component.(CurrentStats)

		baseComponent, hasBase := baseStatsView.Get(id)
		if !hasBase {
			return true
		}
		base := baseComponent.(BaseStats)

		var mods *StatModifiers
		if modifiersView != nil {
			if modComponent, hasMods := modifiersView.Get(id); hasMods {
				m := modComponent.(StatModifiers)
				mods = &m
			}
		}

		effectiveAttack := GetEffectiveAttack(base, mods)
		effectiveDefense := GetEffectiveDefense(base, mods)
		effectiveSpeed := GetEffectiveSpeed(base, mods)

		modCount := 0
		if mods != nil {
			modCount = len(mods.Modifiers)
		}

		exec.Logger().Info("entity stats",
			"entity", id,
			"health", current.CurrentHealth,
			"max_health", base.MaxHealth,
			"attack", effectiveAttack,
			"base_attack", base.BaseAttackDamage,
			"defense", effectiveDefense,
			"base_defense", base.BaseDefense,
			"speed", effectiveSpeed,
			"base_speed", base.BaseMoveSpeed,
			"active_modifiers", modCount,
			"is_dead", current.IsDead,
		)

		return true
	})

	return ecs.SystemResult{}
}
