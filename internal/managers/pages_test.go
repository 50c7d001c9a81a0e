package managers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nsf/jsondiff"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/managers"
	"github.com/horusctf/horus/internal/session"
	"github.com/horusctf/horus/internal/testenv"
)

type testEnv struct {
	Server *testenv.Server
	Core   *managers.Core
	Log    *managers.NotificationLog
	User   api.User
}

func newTestEnv(tb testing.TB, admin bool) *testEnv {
	server := testenv.NewServer(tb)
	form := api.RegisterUserForm{
		Name:     "Ana",
		Surname:  "Souza",
		Username: "ana",
		Email:    "ana@horus.local",
		Password: "s3cret",
	}
	user := server.AddUser(form, admin)
	client := api.NewClient(server.URL)
	store := session.NewStore(client)
	if err := store.Login(context.Background(), form.Email, form.Password); err != nil {
		tb.Fatal("Error:", err)
	}
	log := &managers.NotificationLog{}
	return &testEnv{
		Server: server,
		Core: &managers.Core{
			Client:   client,
			Session:  store,
			Notifier: log,
			Now:      func() time.Time { return server.Now },
		},
		Log:  log,
		User: user,
	}
}

func (e *testEnv) expectNotification(tb testing.TB, kind managers.NotificationKind, message string) {
	tb.Helper()
	last, ok := e.Log.Last()
	if !ok {
		tb.Fatal("Expected notification")
	}
	if last.Kind != kind || last.Message != message {
		tb.Fatalf("Unexpected notification: %v %q", last.Kind, last.Message)
	}
}

func expectPayload(tb testing.TB, value any, expected string) {
	tb.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		tb.Fatal("Error:", err)
	}
	expectPayloadBytes(tb, data, expected)
}

func TestCompetitionsPageJoin(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	old := env.Server.AddCompetition(api.Competition{
		Name: "Archive", Status: api.StatusFinished, InviteCode: "OLD", StartDate: testDate(1),
	})
	env.Server.Enroll(env.User.ID, old.ID)
	env.Server.AddCompetition(api.Competition{
		Name: "Qualifier", Status: api.StatusActive, InviteCode: "ABC123", StartDate: testDate(2),
	})
	page := managers.NewCompetitionsPage(env.Core)
	defer page.Close()
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(page.Competitions()), 1)
	if err := page.Join(ctx, "ABC123"); err != nil {
		t.Fatal("Error:", err)
	}
	competitions := page.Competitions()
	testExpect(t, len(competitions), 2)
	testExpect(t, competitions[0].Name, "Qualifier")
	testExpect(t, env.Server.CountRequests(http.MethodGet, "/competitions/"), 2)
	env.expectNotification(t, managers.SuccessNotification, "Joined competition")
	if err := page.Join(ctx, "NOPE"); err == nil {
		t.Fatal("Expected error")
	}
	env.expectNotification(t, managers.FailureNotification, "Invalid code")
	testExpect(t, len(page.Competitions()), 2)
	testExpect(t, len(env.Log.All()), 2)
}

func TestCompetitionsPageJoinEmptyCode(t *testing.T) {
	env := newTestEnv(t, false)
	page := managers.NewCompetitionsPage(env.Core)
	err := page.Join(context.Background(), "   ")
	var invalid *managers.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/competitions/join"), 0)
}

func TestAdminCompetitionsSave(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	page := managers.NewAdminCompetitions(env.Core)
	form := managers.CompetitionForm{
		Name:       "Qualifier",
		StartDate:  testDate(2),
		EndDate:    testDate(1),
		Status:     api.StatusUpcoming,
		InviteCode: "ABC123",
	}
	if err := page.Save(ctx, form); err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/competitions/"), 0)
	form.EndDate = testDate(3)
	if err := page.Save(ctx, form); err != nil {
		t.Fatal("Error:", err)
	}
	competitions := page.Competitions()
	testExpect(t, len(competitions), 1)
	edit := managers.CompetitionFormFrom(competitions[0])
	testExpect(t, edit.InviteCodeEditable(), false)
	edit.Name = "Final"
	edit.Status = api.StatusActive
	env.Server.ResetRequests()
	if err := page.Save(ctx, edit); err != nil {
		t.Fatal("Error:", err)
	}
	requests := env.Server.Requests()
	expectPayloadBytes(t, requests[0].Body, `{
		"name": "Final",
		"start_date": "2025-01-02T10:00:00Z",
		"end_date": "2025-01-03T10:00:00Z",
		"status": "ativa"
	}`)
	testExpect(t, page.Competitions()[0].InviteCode, "ABC123")
	if err := page.Delete(ctx, edit.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(page.Competitions()), 0)
	env.expectNotification(t, managers.SuccessNotification, "Competition deleted")
}

func TestExerciseFormFlagOmitted(t *testing.T) {
	form := managers.ExerciseForm{
		ID:         "e1",
		Name:       "Web",
		Difficulty: api.DifficultyMedium,
		Points:     150,
		IsActive:   true,
	}
	expectPayload(t, form.Payload(), `{
		"name": "Web",
		"description": "",
		"difficulty": "medio",
		"points": 150,
		"is_active": true
	}`)
	form.Flag = "HORUS{x}"
	expectPayload(t, form.Payload(), `{
		"name": "Web",
		"description": "",
		"difficulty": "medio",
		"points": 150,
		"flag": "HORUS{x}",
		"is_active": true
	}`)
}

func TestAdminExercisesSaveWithTags(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	crypto := env.Server.AddTag("crypto")
	web := env.Server.AddTag("web")
	page := managers.NewAdminExercises(env.Core)
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	results, err := page.Save(ctx, managers.ExerciseForm{
		Name:       "Cipher",
		Difficulty: api.DifficultyEasy,
		Points:     100,
		Flag:       "HORUS{cipher}",
		IsActive:   true,
		TagIDs:     []string{crypto.ID, "missing", web.ID},
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, results[0].Status, managers.BatchSucceeded)
	testExpect(t, results[1].Status, managers.BatchFailed)
	testExpect(t, results[2].Status, managers.BatchSkipped)
	last, _ := env.Log.Last()
	if last.Kind != managers.FailureNotification || !strings.Contains(last.Message, "1 of 3 operations succeeded") {
		t.Fatalf("Unexpected notification: %+v", last)
	}
	catalog := page.Catalog()
	testExpect(t, len(catalog.Exercises), 1)
	exercise := catalog.Exercises[0]
	tags := env.Server.ExerciseTags(exercise.ID)
	testExpect(t, len(tags), 1)
	testExpect(t, tags[0], crypto.ID)
	// Tags of existing exercise are toggled immediately.
	if err := page.ToggleTag(ctx, exercise.ID, web.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(env.Server.ExerciseTags(exercise.ID)), 2)
	if err := page.ToggleTag(ctx, exercise.ID, crypto.ID); err != nil {
		t.Fatal("Error:", err)
	}
	tags = env.Server.ExerciseTags(exercise.ID)
	testExpect(t, len(tags), 1)
	testExpect(t, tags[0], web.ID)
	// Blank flag keeps current flag.
	form := managers.ExerciseFormFrom(page.Catalog().Exercises[0])
	form.Points = 200
	if _, err := page.Save(ctx, form); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, env.Server.Flag(exercise.ID), "HORUS{cipher}")
	testExpect(t, page.Catalog().Exercises[0].Points, 200)
}

func TestAdminExercisesDeploy(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	exercise := env.Server.AddExercise(api.Exercise{
		Name:        "Pwn",
		Difficulty:  api.DifficultyHard,
		Points:      500,
		DockerImage: "horus/pwn:latest",
	}, "HORUS{pwn}")
	page := managers.NewAdminExercises(env.Core)
	if _, err := page.Deploy(ctx, exercise.ID, -1); err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, len(env.Server.Containers()), 0)
	result, err := page.Deploy(ctx, exercise.ID, 0)
	if err != nil {
		t.Fatal("Error:", err)
	}
	env.expectNotification(t, managers.SuccessNotification, "Container deployed: "+result.Connection)
	testExpect(t, page.Catalog().Exercises[0].Connection, result.Connection)
}

func TestCompetitionLinksModal(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	competition := env.Server.AddCompetition(api.Competition{Name: "Qualifier", Status: api.StatusActive})
	exercise := env.Server.AddExercise(api.Exercise{Name: "Web", Difficulty: api.DifficultyEasy}, "HORUS{web}")
	modal := managers.NewCompetitionLinksModal(env.Core, exercise.ID)
	if err := modal.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, modal.Links().IsLinked(competition.ID), false)
	if err := modal.Toggle(ctx, competition.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, modal.Links().IsLinked(competition.ID), true)
	exercises := managers.NewCompetitionExercises(env.Core, competition.ID)
	if err := exercises.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(exercises.Exercises()), 1)
	if err := exercises.Unlink(ctx, exercise.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(exercises.Exercises()), 0)
}

func TestTagManager(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	manager := managers.NewTagManager(env.Core)
	if err := manager.Save(ctx, "", " "); err == nil {
		t.Fatal("Expected error")
	}
	if err := manager.Save(ctx, "", "forensics"); err != nil {
		t.Fatal("Error:", err)
	}
	tags := manager.Tags()
	testExpect(t, len(tags), 1)
	if err := manager.Save(ctx, tags[0].ID, "stego"); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, manager.Tags()[0].Name, "stego")
	if err := manager.Delete(ctx, tags[0].ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(manager.Tags()), 0)
}

func TestContainersPanic(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	first := env.Server.AddContainer(api.Container{ExerciseID: "e1", IsActive: true})
	second := env.Server.AddContainer(api.Container{ExerciseID: "e2", IsActive: true})
	third := env.Server.AddContainer(api.Container{ExerciseID: "e3"})
	page := managers.NewContainersPage(env.Core)
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, page.Total(), 3)
	testExpect(t, page.Active(), 2)
	env.Server.Fail(http.MethodDelete, "/containers/"+second.ID, http.StatusInternalServerError, "Docker daemon unavailable")
	results, err := page.Panic(ctx)
	if err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, results[0].ID, first.ID)
	testExpect(t, results[0].Status, managers.BatchSucceeded)
	testExpect(t, results[1].Status, managers.BatchFailed)
	testExpect(t, results[2].ID, third.ID)
	testExpect(t, results[2].Status, managers.BatchSkipped)
	testExpect(t, len(env.Server.Containers()), 2)
	testExpect(t, page.Total(), 2)
	testExpect(t, len(env.Log.All()), 1)
	env.Server.Recover()
	if _, err := page.Panic(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, page.Total(), 0)
}

func TestContainersKill(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	first := env.Server.AddContainer(api.Container{ExerciseID: "e1", IsActive: true})
	env.Server.AddContainer(api.Container{ExerciseID: "e2", IsActive: true})
	page := managers.NewContainersPage(env.Core)
	defer page.Close()
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, page.Total(), 2)
	if err := page.Kill(ctx, first.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, env.Server.CountRequests(http.MethodDelete, "/containers/"+first.ID), 1)
	testExpect(t, len(env.Log.All()), 1)
	env.expectNotification(t, managers.SuccessNotification, "Container removed")
	testExpect(t, page.Total(), 1)
	testExpect(t, page.Active(), 1)
	if err := page.Kill(ctx, first.ID); err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, len(env.Log.All()), 2)
	env.expectNotification(t, managers.FailureNotification, "Container not found")
	testExpect(t, page.Total(), 1)
}

func TestContainersSync(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.Server.AddOrphans(3)
	page := managers.NewContainersPage(env.Core)
	result, err := page.Sync(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, result.Removed, 3)
	env.expectNotification(t, managers.SuccessNotification, "Sync completed, removed 3 orphan records")
}

func TestAdminUsers(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	student := env.Server.AddUser(api.RegisterUserForm{
		Username: "bob", Email: "bob@horus.local", Password: "bob123",
	}, false)
	page := managers.NewAdminUsers(env.Core)
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	if err := page.ToggleAdmin(ctx, student.ID); err != nil {
		t.Fatal("Error:", err)
	}
	user, _ := env.Server.User(student.ID)
	testExpect(t, user.IsAdmin, true)
	if err := page.Delete(ctx, env.User.ID); err == nil {
		t.Fatal("Expected error")
	}
	env.expectNotification(t, managers.FailureNotification, "Cannot delete yourself")
	if err := page.Delete(ctx, student.ID); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(page.Users()), 1)
}

func TestAdminOverview(t *testing.T) {
	env := newTestEnv(t, true)
	env.Server.AddCompetition(api.Competition{Name: "Qualifier"})
	env.Server.AddExercise(api.Exercise{Name: "Web"}, "HORUS{web}")
	env.Server.AddContainer(api.Container{IsActive: true})
	env.Server.AddContainer(api.Container{})
	page := managers.NewAdminOverview(env.Core)
	if err := page.Load(context.Background()); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, page.Counts(), managers.OverviewCounts{
		Competitions:     1,
		Exercises:        1,
		Users:            1,
		Containers:       2,
		ActiveContainers: 1,
	})
}

func TestArenaSubmit(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.Server.AddCompetition(api.Competition{ID: "C1", Name: "Qualifier", Status: api.StatusActive})
	env.Server.AddCompetition(api.Competition{ID: "C2", Name: "Other", Status: api.StatusActive})
	env.Server.Enroll(env.User.ID, "C1")
	env.Server.AddExercise(api.Exercise{
		ID: "E1", Name: "Warmup", Difficulty: api.DifficultyEasy, Points: 100, IsActive: true,
	}, "HORUS{test}")
	env.Server.LinkExercise("C1", "E1")
	env.Server.AddSolve(api.Solve{
		UserID: env.User.ID, ExerciseID: "E2", CompetitionID: "C2", PointsAwarded: 30,
	})
	arena := managers.NewArena(env.Core, "c1")
	defer arena.Close()
	if err := arena.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, arena.State().Score(), 0)
	card, ok := arena.Card("e1")
	if !ok {
		t.Fatal("Expected card")
	}
	// Empty submission is ignored.
	card.SetInput("")
	if _, err := card.Submit(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/exercises/submit"), 0)
	// Whitespace is submitted as is.
	card.SetInput("  ")
	result, err := card.Submit(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, result.Success, false)
	testExpect(t, card.Message(), "Wrong flag")
	testExpect(t, card.Input(), "  ")
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/exercises/submit"), 1)
	card.SetInput("HORUS{wrong}")
	result, err = card.Submit(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, result.Success, false)
	testExpect(t, card.Message(), "Wrong flag")
	testExpect(t, card.Input(), "HORUS{wrong}")
	testExpect(t, card.Solved(), false)
	env.expectNotification(t, managers.FailureNotification, "Wrong flag")
	card.SetInput("HORUS{test}")
	result, err = card.Submit(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, result.Success, true)
	testExpect(t, result.PointsAwarded, 100)
	testExpect(t, card.Solved(), true)
	testExpect(t, card.Input(), "")
	testExpect(t, card.Message(), "")
	testExpect(t, arena.State().Score(), 100)
	testExpect(t, arena.State().SolvedCount(), 1)
	env.expectNotification(t, managers.SuccessNotification, "Correct flag! +100 points")
}

func TestArenaStaleAfterClose(t *testing.T) {
	env := newTestEnv(t, false)
	env.Server.AddCompetition(api.Competition{ID: "C1", Name: "Qualifier"})
	env.Server.Enroll(env.User.ID, "C1")
	arena := managers.NewArena(env.Core, "C1")
	arena.Close()
	if err := arena.Load(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, len(arena.Cards()), 0)
}

func TestScoreboardPage(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	finished := env.Server.AddCompetition(api.Competition{
		Name: "Archive", Status: api.StatusFinished, StartDate: testDate(9),
	})
	active := env.Server.AddCompetition(api.Competition{
		Name: "Qualifier", Status: api.StatusActive, StartDate: testDate(1),
	})
	env.Server.AddSolve(api.Solve{
		UserID: env.User.ID, ExerciseID: "e1", CompetitionID: active.ID, PointsAwarded: 70,
	})
	page := managers.NewScoreboardPage(env.Core)
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, page.Selected(), active.ID)
	ranking := page.Ranking()
	testExpect(t, len(ranking), 1)
	testExpect(t, ranking[0].Score, 70)
	env.Server.Fail(http.MethodGet, "/scoreboard/"+finished.ID, http.StatusInternalServerError, "Ranking unavailable")
	if err := page.Select(ctx, finished.ID); err == nil {
		t.Fatal("Expected error")
	}
	testExpect(t, len(page.Ranking()), 0)
	env.expectNotification(t, managers.FailureNotification, "Ranking unavailable")
	if err := page.SelectGlobal(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, len(page.Ranking()), 1)
}

func expectPayloadBytes(tb testing.TB, data []byte, expected string) {
	tb.Helper()
	options := jsondiff.DefaultConsoleOptions()
	diff, desc := jsondiff.Compare(data, []byte(expected), &options)
	if diff != jsondiff.FullMatch {
		tb.Fatalf("Unexpected payload: %s", desc)
	}
}
