package managers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/managers"
)

func TestRegisterPasswordMismatch(t *testing.T) {
	env := newTestEnv(t, false)
	err := managers.Register(context.Background(), env.Core, managers.RegisterForm{
		Name:            "Bob",
		Username:        "bob",
		Email:           "bob@horus.local",
		Password:        "secret1",
		ConfirmPassword: "secret2",
	})
	var invalid *managers.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "passwords do not match") {
		t.Fatalf("Unexpected message: %q", err.Error())
	}
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/auth/register"), 0)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	form := managers.RegisterForm{
		Name:            "Bob",
		Surname:         "Lee",
		Username:        "bob",
		Email:           " bob@horus.local ",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
	if err := managers.Register(ctx, env.Core, form); err != nil {
		t.Fatal("Error:", err)
	}
	requests := env.Server.Requests()
	expectPayloadBytes(t, requests[len(requests)-1].Body, `{
		"name": "Bob",
		"surname": "Lee",
		"username": "bob",
		"email": "bob@horus.local",
		"password": "secret1"
	}`)
	env.expectNotification(t, managers.SuccessNotification, "Account created")
	if err := managers.Register(ctx, env.Core, form); err == nil {
		t.Fatal("Expected error")
	}
	env.expectNotification(t, managers.FailureNotification, "Email already registered")
}

func TestProfilePage(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	page := managers.NewProfilePage(env.Core)
	form := page.Form()
	testExpect(t, form.Username, "ana")
	form.Name = "Ana Maria"
	env.Server.ResetRequests()
	if _, err := page.Submit(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	// Form was not changed, so name should be kept.
	requests := env.Server.Requests()
	expectPayloadBytes(t, requests[0].Body, `{
		"name": "Ana",
		"surname": "Souza",
		"username": "ana",
		"email": "ana@horus.local"
	}`)
	form.Password = "newpass"
	form.ConfirmPassword = "newpass"
	page.SetForm(form)
	env.Server.ResetRequests()
	user, err := page.Submit(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, user.Name, "Ana Maria")
	expectPayloadBytes(t, env.Server.Requests()[0].Body, `{
		"name": "Ana Maria",
		"surname": "Souza",
		"username": "ana",
		"email": "ana@horus.local",
		"password": "newpass"
	}`)
	current, _ := env.Core.Session.User()
	testExpect(t, current.Name, "Ana Maria")
	testExpect(t, page.Form().Password, "")
	testExpect(t, page.Form().ConfirmPassword, "")
}

func TestProfilePageKeepsFormOnFailure(t *testing.T) {
	env := newTestEnv(t, false)
	env.Server.AddUser(api.RegisterUserForm{
		Username: "bob", Email: "bob@horus.local", Password: "bob123",
	}, false)
	page := managers.NewProfilePage(env.Core)
	form := page.Form()
	form.Username = "bob"
	form.Password = "newpass"
	form.ConfirmPassword = "newpass"
	page.SetForm(form)
	if _, err := page.Submit(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	env.expectNotification(t, managers.FailureNotification, "Username already taken")
	testExpect(t, page.Form(), form)
	current, _ := env.Core.Session.User()
	testExpect(t, current.Username, "ana")
}

func TestCompetitionFormValidate(t *testing.T) {
	form := managers.CompetitionForm{
		Name:   "Qualifier",
		Status: "unknown",
	}
	err := form.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, field := range []string{"status", "start_date", "end_date", "invite_code"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("Expected %q in %q", field, err.Error())
		}
	}
	form = managers.CompetitionForm{
		ID:        "c1",
		Name:      "Qualifier",
		Status:    api.StatusFinished,
		StartDate: testDate(1),
		EndDate:   testDate(2),
	}
	if err := form.Validate(); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestExerciseFormValidate(t *testing.T) {
	form := managers.ExerciseForm{
		Name:       "Web",
		Difficulty: "insane",
		Points:     -1,
	}
	err := form.Validate()
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, field := range []string{"difficulty", "points", "flag"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("Expected %q in %q", field, err.Error())
		}
	}
	form.ID = "e1"
	form.Difficulty = api.DifficultyHard
	form.Points = 10
	if err := form.Validate(); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestExerciseFormBlankFlag(t *testing.T) {
	form := managers.ExerciseForm{
		Name:       "Web",
		Difficulty: api.DifficultyEasy,
		Flag:       "   ",
	}
	for _, id := range []string{"", "e1"} {
		form.ID = id
		err := form.Validate()
		if err == nil {
			t.Fatalf("Expected error for %q", id)
		}
		if !strings.Contains(err.Error(), "flag") {
			t.Fatalf("Expected %q in %q", "flag", err.Error())
		}
	}
	// Flag is sent verbatim when it is not empty.
	expectPayload(t, form.Payload(), `{
		"name": "Web",
		"description": "",
		"difficulty": "facil",
		"points": 0,
		"flag": "   ",
		"is_active": false
	}`)
	form.Flag = " HORUS{x} "
	if err := form.Validate(); err != nil {
		t.Fatal("Error:", err)
	}
	form.ID = ""
	if err := form.Validate(); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestAdminExercisesSaveBlankFlag(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	page := managers.NewAdminExercises(env.Core)
	if err := page.Load(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	_, err := page.Save(ctx, managers.ExerciseForm{
		Name:       "Web",
		Difficulty: api.DifficultyEasy,
		Flag:       "   ",
	})
	var invalid *managers.ValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	testExpect(t, env.Server.CountRequests(http.MethodPost, "/exercises/"), 0)
}
