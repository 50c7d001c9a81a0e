package managers

import (
	"context"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/pkg/logs"
)

// RecentSolvesLimit is amount of solves shown on dashboard.
const RecentSolvesLimit = 5

// UnknownExercise is displayed for solves of missing exercises.
const UnknownExercise = "Unknown exercise"

// Difficulties contains difficulties in display order.
var Difficulties = []string{
	api.DifficultyEasy,
	api.DifficultyMedium,
	api.DifficultyHard,
}

// Mastery represents progress in single difficulty.
type Mastery struct {
	Difficulty string
	Solved     int
	Total      int
}

// Ratio returns solved part of exercises in range [0, 1].
func (m Mastery) Ratio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Solved) / float64(m.Total)
}

// RecentSolve represents solve with exercise name.
type RecentSolve struct {
	api.Solve
	ExerciseName string
}

// DashboardData contains raw data of dashboard.
type DashboardData struct {
	Competitions api.Competitions
	Solves       api.Solves
	Exercises    api.Exercises
	Scoreboard   api.Scoreboard
}

// DashboardStats contains values derived from dashboard data.
type DashboardStats struct {
	User                 api.User
	TotalScore           int
	UniqueCaptures       int
	Mastery              []Mastery
	Rank                 string
	EnrolledCompetitions int
	ActiveCompetition    *api.Competition
	RecentSolves         []RecentSolve
	ActiveToday          bool
}

// Dashboard represents student dashboard.
type Dashboard struct {
	core *Core
	data *Resource[DashboardData]
}

func NewDashboard(core *Core) *Dashboard {
	return &Dashboard{
		core: core,
		data: NewResource(core, "dashboard", loadDashboardData(core)),
	}
}

// loadDashboardData loads all dashboard reads in parallel.
//
// Scoreboard is optional: when it fails rank falls back to NoRank.
// Other reads are all-or-nothing.
func loadDashboardData(core *Core) Loader[DashboardData] {
	client := core.Client
	return func(ctx context.Context) (DashboardData, error) {
		var data DashboardData
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			competitions, err := client.ObserveCompetitions(ctx)
			data.Competitions = competitions
			return err
		})
		g.Go(func() error {
			solves, err := client.ObserveMySolves(ctx)
			data.Solves = solves
			return err
		})
		g.Go(func() error {
			exercises, err := client.ObserveExercises(ctx)
			data.Exercises = exercises
			return err
		})
		g.Go(func() error {
			scoreboard, err := client.ObserveGlobalScoreboard(ctx)
			if err != nil {
				core.logger().Warn(
					"Unable to load global scoreboard",
					logs.Any("resource", "dashboard"), err,
				)
				return nil
			}
			data.Scoreboard = scoreboard
			return nil
		})
		if err := g.Wait(); err != nil {
			return DashboardData{}, err
		}
		return data, nil
	}
}

func (d *Dashboard) Load(ctx context.Context) error {
	return d.data.Reload(ctx)
}

func (d *Dashboard) Close() {
	d.data.Close()
}

func (d *Dashboard) Data() DashboardData {
	return d.data.Value()
}

// Stats returns statistics of current user.
func (d *Dashboard) Stats() DashboardStats {
	var user api.User
	if d.core.Session != nil {
		user, _ = d.core.Session.User()
	}
	return d.Data().Stats(user, d.core.now())
}

// Stats returns statistics of user at specified moment.
func (d DashboardData) Stats(user api.User, now time.Time) DashboardStats {
	solved := UniqueSolvedIDs(d.Solves)
	stats := DashboardStats{
		User:                 user,
		TotalScore:           TotalScore(d.Solves),
		UniqueCaptures:       len(solved),
		Rank:                 NoRank,
		EnrolledCompetitions: len(d.Competitions),
	}
	if len(user.ID) > 0 {
		stats.Rank = RankOf(d.Scoreboard, user.ID)
	}
	for _, difficulty := range Difficulties {
		mastery := Mastery{Difficulty: difficulty}
		for _, exercise := range d.Exercises {
			if exercise.Difficulty != difficulty {
				continue
			}
			mastery.Total++
			if slices.Contains(solved, NormalizeID(exercise.ID)) {
				mastery.Solved++
			}
		}
		stats.Mastery = append(stats.Mastery, mastery)
	}
	for _, competition := range SortCompetitions(d.Competitions) {
		if competition.Status == api.StatusActive {
			active := competition
			stats.ActiveCompetition = &active
			break
		}
	}
	recent := slices.Clone(d.Solves)
	slices.SortStableFunc(recent, func(a, b api.Solve) int {
		return b.Timestamp.Compare(a.Timestamp.Time)
	})
	if len(recent) > RecentSolvesLimit {
		recent = recent[:RecentSolvesLimit]
	}
	for _, solve := range recent {
		stats.RecentSolves = append(stats.RecentSolves, RecentSolve{
			Solve:        solve,
			ExerciseName: exerciseName(d.Exercises, solve.ExerciseID),
		})
	}
	y, m, day := now.Date()
	for _, solve := range d.Solves {
		sy, sm, sd := solve.Timestamp.In(now.Location()).Date()
		if sy == y && sm == m && sd == day {
			stats.ActiveToday = true
			break
		}
	}
	return stats
}

func exerciseName(exercises api.Exercises, id string) string {
	for _, exercise := range exercises {
		if SameID(exercise.ID, id) {
			return exercise.Name
		}
	}
	return UnknownExercise
}
