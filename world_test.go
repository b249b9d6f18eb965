package ecs_test

import (
	"testing"

	"github.com/ironloom/ecs"
	ecsstorage "github.com/ironloom/ecs/ecs/storage"
)

func TestWorldRegisterComponent(t *testing.T) {
	world := ecs.NewWorld()

	strategy := ecsstorage.NewDenseStrategy()
	compType := ecs.ComponentType("position")

	if err := world.RegisterComponent(compType, strategy); err != nil {
		t.Fatalf("register component: %v", err)
	}

	if err := world.RegisterComponent(compType, strategy); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	if _, err := world.Storage().EnsureComponent(compType); err != nil {
		t.Fatalf("ensure component: %v", err)
	}

	view, ok := world.ViewComponent(compType)
	if !ok {
		t.Fatalf("expected component view once storage exists")
	}
	if view.ComponentType() != compType {
		t.Fatalf("unexpected component type: %v", view.ComponentType())
	}
}

func TestWorldLazyDefaultStorage(t *testing.T) {
	world := ecs.NewWorld()
	compType := ecs.ComponentType("velocity")

	if _, ok := world.ViewComponent(compType); ok {
		t.Fatalf("expected no view before any write")
	}

	store, err := world.Storage().EnsureComponent(compType)
	if err != nil {
		t.Fatalf("ensure component: %v", err)
	}
	entity := world.CreateEntity()
	if err := store.Set(entity, 1.5); err != nil {
		t.Fatalf("set: %v", err)
	}

	view, ok := world.ViewComponent(compType)
	if !ok {
		t.Fatalf("expected view once a store exists")
	}
	if value, ok := view.Get(entity); !ok || value.(float64) != 1.5 {
		t.Fatalf("unexpected view state: value=%v ok=%v", value, ok)
	}
}

func TestResourceContainer(t *testing.T) {
	world := ecs.NewWorld()
	world.Resources().Set("clock", 123)

	value, ok := world.Resources().Get("clock")
	if !ok {
		t.Fatalf("expected resource")
	}
	if value.(int) != 123 {
		t.Fatalf("unexpected resource value: %v", value)
	}

	seen := 0
	world.Resources().Range(func(k string, v any) bool {
		seen++
		return true
	})
	if seen == 0 {
		t.Fatalf("expected Range to visit entries")
	}

	world.Resources().Delete("clock")
	if _, ok := world.Resources().Get("clock"); ok {
		t.Fatalf("resource should be deleted")
	}
}
