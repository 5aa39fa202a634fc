package container

import (
	"goldroom/internal/application/port"
	"goldroom/internal/application/usecase/coordinator"
)

// Container wires the application layer on top of infrastructure ports.
type Container struct {
	deps coordinator.ServiceDeps

	coordinator *coordinator.Service
}

func New(deps coordinator.ServiceDeps) *Container {
	if deps.Repo == nil {
		deps.Repo = coordinator.NewNoopRepo()
	}
	return &Container{deps: deps}
}

func (c *Container) Repository() port.StateRepository {
	return c.deps.Repo
}

// Coordinator returns the single coordinator, creating it on first use.
func (c *Container) Coordinator() *coordinator.Service {
	if c.coordinator == nil {
		c.coordinator = coordinator.NewService(c.deps)
	}
	return c.coordinator
}
