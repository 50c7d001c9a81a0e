package managers

import (
	"context"
	"fmt"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/pkg/logs"
)

// ContainersPage represents inventory of running challenge containers.
type ContainersPage struct {
	core       *Core
	containers *Resource[api.Containers]
	batch      []BatchOption
}

func NewContainersPage(core *Core, options ...BatchOption) *ContainersPage {
	return &ContainersPage{
		core:       core,
		containers: NewResource(core, "containers", core.Client.ObserveContainers),
		batch:      options,
	}
}

func (p *ContainersPage) Load(ctx context.Context) error {
	return p.containers.Reload(ctx)
}

func (p *ContainersPage) Close() {
	p.containers.Close()
}

func (p *ContainersPage) Containers() api.Containers {
	return p.containers.Value()
}

// Total returns amount of containers.
func (p *ContainersPage) Total() int {
	return len(p.Containers())
}

// Active returns amount of active containers.
func (p *ContainersPage) Active() int {
	return countActive(p.Containers())
}

func countActive(containers api.Containers) int {
	n := 0
	for _, container := range containers {
		if container.IsActive {
			n++
		}
	}
	return n
}

// Kill removes single container.
func (p *ContainersPage) Kill(ctx context.Context, id string) error {
	return p.containers.Mutate(ctx, "Unable to remove container", func(ctx context.Context) (string, error) {
		if err := p.core.Client.DeleteContainer(ctx, id); err != nil {
			return "", err
		}
		return "Container removed", nil
	})
}

// Sync asks backend to remove records of missing containers.
func (p *ContainersPage) Sync(ctx context.Context) (api.SyncResult, error) {
	var result api.SyncResult
	err := p.containers.Mutate(ctx, "Unable to sync containers", func(ctx context.Context) (string, error) {
		var err error
		result, err = p.core.Client.SyncContainers(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Sync completed, removed %d orphan records", result.Removed), nil
	})
	return result, err
}

// Panic removes every container of last loaded inventory one by one.
//
// Removal is not atomic: containers removed before failure stay removed.
func (p *ContainersPage) Panic(ctx context.Context) (BatchResults, error) {
	var ids []string
	for _, container := range p.Containers() {
		ids = append(ids, container.ID)
	}
	var results BatchResults
	err := p.containers.Mutate(ctx, "Unable to remove containers", func(ctx context.Context) (string, error) {
		results = RunBatch(ctx, ids, func(ctx context.Context, id string) error {
			err := p.core.Client.DeleteContainer(ctx, id)
			if err != nil {
				p.core.logger().Warn(
					"Unable to remove container",
					logs.Any("container_id", id), err,
				)
			}
			return err
		}, p.batch...)
		if err := results.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %d containers", len(results)), nil
	})
	return results, err
}
