package managers

import (
	"context"
	"sync"

	"github.com/horusctf/horus/internal/api"
)

// GlobalScoreboard is selection of global ranking.
const GlobalScoreboard = "global"

// ScoreboardPage represents rankings of competitions.
type ScoreboardPage struct {
	core         *Core
	competitions *Resource[[]api.Competition]
	ranking      *Resource[api.Scoreboard]
	mutex        sync.Mutex
	selected     string
}

func NewScoreboardPage(core *Core) *ScoreboardPage {
	p := ScoreboardPage{
		core: core,
		competitions: NewResource(
			core, "scoreboard_competitions", loadSortedCompetitions(core.Client),
		),
	}
	p.ranking = NewResource(core, "scoreboard", func(ctx context.Context) (api.Scoreboard, error) {
		id := p.Selected()
		if id == GlobalScoreboard {
			return core.Client.ObserveGlobalScoreboard(ctx)
		}
		return core.Client.ObserveScoreboard(ctx, id)
	})
	return &p
}

// Load fetches competitions and ranking of selected competition.
//
// First active competition is selected by default, otherwise first
// competition of sorted list.
func (p *ScoreboardPage) Load(ctx context.Context) error {
	if err := p.competitions.Reload(ctx); err != nil {
		return err
	}
	competitions := p.Competitions()
	p.mutex.Lock()
	if p.selected != GlobalScoreboard && !containsCompetition(competitions, p.selected) {
		p.selected = defaultCompetition(competitions)
	}
	selected := p.selected
	p.mutex.Unlock()
	if len(selected) == 0 {
		return nil
	}
	return p.loadRanking(ctx)
}

func containsCompetition(competitions []api.Competition, id string) bool {
	for _, competition := range competitions {
		if SameID(competition.ID, id) {
			return true
		}
	}
	return false
}

func defaultCompetition(competitions []api.Competition) string {
	for _, competition := range competitions {
		if competition.Status == api.StatusActive {
			return competition.ID
		}
	}
	if len(competitions) > 0 {
		return competitions[0].ID
	}
	return ""
}

// Select fetches ranking of competition.
func (p *ScoreboardPage) Select(ctx context.Context, competitionID string) error {
	p.mutex.Lock()
	p.selected = competitionID
	p.mutex.Unlock()
	return p.loadRanking(ctx)
}

// SelectGlobal fetches global ranking.
func (p *ScoreboardPage) SelectGlobal(ctx context.Context) error {
	return p.Select(ctx, GlobalScoreboard)
}

func (p *ScoreboardPage) loadRanking(ctx context.Context) error {
	if err := p.ranking.Reload(ctx); err != nil {
		p.core.notify(FailureNotification, ErrorMessage(err, "Unable to load scoreboard"))
		return err
	}
	return nil
}

func (p *ScoreboardPage) Close() {
	p.competitions.Close()
	p.ranking.Close()
}

// Selected returns id of selected competition.
func (p *ScoreboardPage) Selected() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.selected
}

func (p *ScoreboardPage) Competitions() []api.Competition {
	return p.competitions.Value()
}

// Ranking returns ranking of selected competition.
//
// Ranking is empty if last fetch failed.
func (p *ScoreboardPage) Ranking() api.Scoreboard {
	if p.ranking.Err() != nil {
		return nil
	}
	return p.ranking.Value()
}
