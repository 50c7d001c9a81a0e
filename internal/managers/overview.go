package managers

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// OverviewCounts contains totals shown on admin index.
type OverviewCounts struct {
	Competitions     int
	Exercises        int
	Users            int
	Containers       int
	ActiveContainers int
}

// AdminOverview represents admin index page.
type AdminOverview struct {
	core   *Core
	counts *Resource[OverviewCounts]
}

func NewAdminOverview(core *Core) *AdminOverview {
	client := core.Client
	return &AdminOverview{
		core: core,
		counts: NewResource(core, "overview", func(ctx context.Context) (OverviewCounts, error) {
			var counts OverviewCounts
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				competitions, err := client.ObserveCompetitions(ctx)
				counts.Competitions = len(competitions)
				return err
			})
			g.Go(func() error {
				exercises, err := client.ObserveExercises(ctx)
				counts.Exercises = len(exercises)
				return err
			})
			g.Go(func() error {
				users, err := client.ObserveUsers(ctx)
				counts.Users = len(users)
				return err
			})
			g.Go(func() error {
				containers, err := client.ObserveContainers(ctx)
				counts.Containers = len(containers)
				counts.ActiveContainers = countActive(containers)
				return err
			})
			if err := g.Wait(); err != nil {
				return OverviewCounts{}, err
			}
			return counts, nil
		}),
	}
}

func (p *AdminOverview) Load(ctx context.Context) error {
	return p.counts.Reload(ctx)
}

func (p *AdminOverview) Close() {
	p.counts.Close()
}

func (p *AdminOverview) Counts() OverviewCounts {
	return p.counts.Value()
}
