package ecs

import "errors"

var (
	// ErrComponentAlreadyRegistered indicates an attempt to register the same component twice.
	ErrComponentAlreadyRegistered = errors.New("ecs: component already registered")
	// ErrComponentNotRegistered signals lookup on an unknown component type.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrNilStorageStrategy is returned when storage registration receives a nil strategy.
	ErrNilStorageStrategy = errors.New("ecs: nil storage strategy")
	// ErrNilComponentStore is returned when a strategy produces a nil store.
	ErrNilComponentStore = errors.New("ecs: strategy returned nil store")

	// ErrEntityNotAlive indicates an operation targeted a destroyed or unknown entity.
	ErrEntityNotAlive = errors.New("ecs: entity is not alive")
	// ErrEntityNotCommitted indicates a mutation targeted a reserved-but-uncommitted entity.
	ErrEntityNotCommitted = errors.New("ecs: entity has not been committed")

	// ErrScheduleNotFound indicates a reference to an unregistered schedule.
	ErrScheduleNotFound = errors.New("ecs: schedule not found")
	// ErrSystemNotFound indicates an ordering constraint named an unregistered system.
	ErrSystemNotFound = errors.New("ecs: system not found")
	// ErrDuplicateSystem indicates the same system name was registered twice in one schedule.
	ErrDuplicateSystem = errors.New("ecs: duplicate system in schedule")
	// ErrCycleDetected indicates the system dependency graph contains a cycle.
	ErrCycleDetected = errors.New("ecs: cycle detected in system dependency graph")
	// ErrSetNotFound indicates a reference to an unregistered system set.
	ErrSetNotFound = errors.New("ecs: system set not found")

	// ErrWorkerPoolClosed indicates jobs cannot be submitted because the executor closed.
	ErrWorkerPoolClosed = errors.New("ecs: executor closed")
	// ErrAsyncSystemNotAllowed indicates a system opted out of async execution.
	ErrAsyncSystemNotAllowed = errors.New("ecs: system does not allow async execution")

	// ErrTransientState indicates a module/sub-app operation was attempted while the
	// world is mid-update; the call is a documented no-op rather than an error
	// returned to the caller.
	ErrTransientState = errors.New("ecs: world is mid-update, operation deferred")
)
