package managers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/managers"
)

func TestDashboardStats(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) api.Time {
		return api.Time{Time: now.Add(-d)}
	}
	data := managers.DashboardData{
		Competitions: api.Competitions{
			{ID: "X", Name: "Old", Status: api.StatusFinished},
			{ID: "Y", Name: "Current", Status: api.StatusActive},
		},
		Solves: api.Solves{
			{ExerciseID: "a", CompetitionID: "X", PointsAwarded: 50, Timestamp: at(48 * time.Hour)},
			{ExerciseID: "A", CompetitionID: "Y", PointsAwarded: 30, Timestamp: at(time.Hour)},
			{ExerciseID: "b", CompetitionID: "Y", PointsAwarded: 20, Timestamp: at(30 * time.Hour)},
			{ExerciseID: "gone", CompetitionID: "Y", PointsAwarded: 5, Timestamp: at(72 * time.Hour)},
		},
		Exercises: api.Exercises{
			{ID: "a", Name: "Alpha", Difficulty: api.DifficultyEasy},
			{ID: "b", Name: "Beta", Difficulty: api.DifficultyMedium},
			{ID: "c", Name: "Gamma", Difficulty: api.DifficultyEasy},
		},
		Scoreboard: api.Scoreboard{
			{Rank: 1, UserID: "u1", Score: 500},
			{Rank: 2, UserID: "u2", Score: 105},
		},
	}
	stats := data.Stats(api.User{ID: "u2"}, now)
	testExpect(t, stats.TotalScore, 105)
	testExpect(t, stats.UniqueCaptures, 3)
	testExpect(t, stats.Rank, "2")
	testExpect(t, stats.EnrolledCompetitions, 2)
	testExpect(t, stats.ActiveCompetition.ID, "Y")
	testExpect(t, stats.ActiveToday, true)
	testExpect(t, len(stats.Mastery), 3)
	testExpect(t, stats.Mastery[0], managers.Mastery{Difficulty: api.DifficultyEasy, Solved: 1, Total: 2})
	testExpect(t, stats.Mastery[1], managers.Mastery{Difficulty: api.DifficultyMedium, Solved: 1, Total: 1})
	testExpect(t, stats.Mastery[2].Ratio(), 0.0)
	testExpect(t, stats.Mastery[0].Ratio(), 0.5)
	testExpect(t, len(stats.RecentSolves), 4)
	testExpect(t, stats.RecentSolves[0].ExerciseName, "Alpha")
	testExpect(t, stats.RecentSolves[1].ExerciseName, "Beta")
	testExpect(t, stats.RecentSolves[3].ExerciseName, managers.UnknownExercise)
	// User absent in scoreboard gets placeholder rank.
	stats = data.Stats(api.User{ID: "u3"}, now.Add(72*time.Hour))
	testExpect(t, stats.Rank, managers.NoRank)
	testExpect(t, stats.ActiveToday, false)
}

func TestDashboardRecentSolvesLimit(t *testing.T) {
	var data managers.DashboardData
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		data.Solves = append(data.Solves, api.Solve{
			ExerciseID: "e", Timestamp: api.Time{Time: base.Add(time.Duration(i) * time.Hour)},
		})
	}
	stats := data.Stats(api.User{}, base)
	testExpect(t, len(stats.RecentSolves), managers.RecentSolvesLimit)
	testExpect(t, stats.RecentSolves[0].Timestamp.Hour(), 7)
	testExpect(t, stats.Rank, managers.NoRank)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	competition := env.Server.AddCompetition(api.Competition{Name: "Qualifier", Status: api.StatusActive})
	env.Server.Enroll(env.User.ID, competition.ID)
	exercise := env.Server.AddExercise(api.Exercise{
		Name: "Warmup", Difficulty: api.DifficultyEasy, Points: 100,
	}, "HORUS{warmup}")
	env.Server.AddSolve(api.Solve{
		UserID: env.User.ID, ExerciseID: exercise.ID, CompetitionID: competition.ID, PointsAwarded: 100,
	})
	dashboard := managers.NewDashboard(env.Core)
	defer dashboard.Close()
	if err := dashboard.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	stats := dashboard.Stats()
	testExpect(t, stats.User.Username, "ana")
	testExpect(t, stats.TotalScore, 100)
	testExpect(t, stats.Rank, "1")
	testExpect(t, stats.ActiveToday, true)
	testExpect(t, stats.RecentSolves[0].ExerciseName, "Warmup")
}

func TestDashboardScoreboardFailure(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	competition := env.Server.AddCompetition(api.Competition{Name: "Qualifier", Status: api.StatusActive})
	env.Server.Enroll(env.User.ID, competition.ID)
	exercise := env.Server.AddExercise(api.Exercise{
		Name: "Warmup", Difficulty: api.DifficultyEasy, Points: 100,
	}, "HORUS{warmup}")
	env.Server.AddSolve(api.Solve{
		UserID: env.User.ID, ExerciseID: exercise.ID, CompetitionID: competition.ID, PointsAwarded: 100,
	})
	env.Server.Fail(http.MethodGet, "/scoreboard/global", http.StatusInternalServerError, "boom")
	dashboard := managers.NewDashboard(env.Core)
	defer dashboard.Close()
	if err := dashboard.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	stats := dashboard.Stats()
	testExpect(t, stats.Rank, managers.NoRank)
	testExpect(t, stats.TotalScore, 100)
	testExpect(t, stats.UniqueCaptures, 1)
	testExpect(t, stats.EnrolledCompetitions, 1)
	testExpect(t, stats.Mastery[0].Solved, 1)
	// Other reads are still all-or-nothing.
	env.Server.Recover()
	env.Server.Fail(http.MethodGet, "/exercises/my-solves", http.StatusInternalServerError, "boom")
	if err := dashboard.Load(ctx); err == nil {
		t.Fatal("Expected error")
	}
}
