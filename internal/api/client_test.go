package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nsf/jsondiff"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/testenv"
)

var testAdminForm = api.RegisterUserForm{
	Name:     "Root",
	Surname:  "Admin",
	Username: "root",
	Email:    "root@horus.local",
	Password: "qwerty123",
}

func newTestClient(tb testing.TB) (*testenv.Server, *api.Client) {
	server := testenv.NewServer(tb)
	server.AddUser(testAdminForm, true)
	client := api.NewClient(server.URL, api.WithTimeout(5*time.Second))
	if err := client.Login(context.Background(), api.LoginForm{
		Email:    testAdminForm.Email,
		Password: testAdminForm.Password,
	}); err != nil {
		tb.Fatal("Error:", err)
	}
	return server, client
}

func expectJSON(tb testing.TB, data []byte, expected string) {
	tb.Helper()
	options := jsondiff.DefaultConsoleOptions()
	diff, desc := jsondiff.Compare(data, []byte(expected), &options)
	if diff != jsondiff.FullMatch {
		tb.Fatalf("Unexpected payload: %s", desc)
	}
}

func TestClientSession(t *testing.T) {
	server, client := newTestClient(t)
	ctx := context.Background()
	if len(client.SessionCookie()) == 0 {
		t.Fatal("Expected session cookie")
	}
	me, err := client.Me(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if me.Username != "root" || !me.IsAdmin {
		t.Fatalf("Unexpected user: %+v", me)
	}
	// Session can be reused by another client.
	other := api.NewClient(server.URL, api.WithSessionCookie(client.SessionCookie()))
	if _, err := other.Me(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatal("Error:", err)
	}
	_, err = client.Me(ctx)
	if code := api.StatusCode(err); code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d (%v)", code, err)
	}
	if detail := api.Detail(err, "fallback"); detail != "Not authenticated" {
		t.Fatalf("Unexpected detail: %q", detail)
	}
}

func TestClientRegisterValidation(t *testing.T) {
	server := testenv.NewServer(t)
	client := api.NewClient(server.URL)
	err := client.Register(context.Background(), api.RegisterUserForm{Name: "Test"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if code := api.StatusCode(err); code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", code)
	}
	expected := "email: field required; password: field required; username: field required"
	if detail := api.Detail(err, ""); detail != expected {
		t.Fatalf("Unexpected detail: %q", detail)
	}
}

func TestClientCompetitions(t *testing.T) {
	server, client := newTestClient(t)
	ctx := context.Background()
	begin := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	created, err := client.CreateCompetition(ctx, api.CreateCompetitionForm{
		Name:       "Qualifier",
		StartDate:  api.Time{Time: begin},
		EndDate:    api.Time{Time: begin.Add(48 * time.Hour)},
		Status:     api.StatusActive,
		InviteCode: "ABC123",
	})
	if err != nil {
		t.Fatal("Error:", err)
	}
	requests := server.Requests()
	expectJSON(t, requests[len(requests)-1].Body, `{
		"name": "Qualifier",
		"start_date": "2025-01-01T10:00:00Z",
		"end_date": "2025-01-03T10:00:00Z",
		"status": "ativa",
		"invite_code": "ABC123"
	}`)
	updated, err := client.UpdateCompetition(ctx, created.ID, api.UpdateCompetitionForm{
		Name:      "Final",
		StartDate: created.StartDate,
		EndDate:   created.EndDate,
		Status:    api.StatusFinished,
	})
	if err != nil {
		t.Fatal("Error:", err)
	}
	if updated.Name != "Final" || updated.InviteCode != "ABC123" {
		t.Fatalf("Unexpected competition: %+v", updated)
	}
	competitions, err := client.ObserveCompetitions(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(competitions) != 1 || !competitions[0].StartDate.Equal(begin) {
		t.Fatalf("Unexpected competitions: %+v", competitions)
	}
	if err := client.DeleteCompetition(ctx, created.ID); err != nil {
		t.Fatal("Error:", err)
	}
	if _, err := client.ObserveCompetition(ctx, created.ID); api.StatusCode(err) != http.StatusNotFound {
		t.Fatalf("Expected 404, got %v", err)
	}
}

func TestClientJoinInvalidCode(t *testing.T) {
	_, client := newTestClient(t)
	err := client.JoinCompetition(context.Background(), api.JoinCompetitionForm{InviteCode: "NOPE"})
	if detail := api.Detail(err, ""); detail != "Invalid code" {
		t.Fatalf("Unexpected detail: %q", detail)
	}
}

func TestClientExerciseFlagOmitted(t *testing.T) {
	server, client := newTestClient(t)
	ctx := context.Background()
	flag := "HORUS{first}"
	exercise, err := client.CreateExercise(ctx, api.ExerciseForm{
		Name:       "Warmup",
		Difficulty: api.DifficultyEasy,
		Points:     100,
		Flag:       &flag,
		IsActive:   true,
	})
	if err != nil {
		t.Fatal("Error:", err)
	}
	server.ResetRequests()
	if _, err := client.UpdateExercise(ctx, exercise.ID, api.ExerciseForm{
		Name:       "Warmup 2",
		Difficulty: api.DifficultyMedium,
		Points:     150,
		IsActive:   true,
	}); err != nil {
		t.Fatal("Error:", err)
	}
	expectJSON(t, server.Requests()[0].Body, `{
		"name": "Warmup 2",
		"description": "",
		"difficulty": "medio",
		"points": 150,
		"is_active": true
	}`)
	if got := server.Flag(exercise.ID); got != flag {
		t.Fatalf("Flag was changed: %q", got)
	}
}

func TestClientContainers(t *testing.T) {
	server, client := newTestClient(t)
	ctx := context.Background()
	exercise := server.AddExercise(api.Exercise{
		Name:        "Web",
		Difficulty:  api.DifficultyHard,
		Points:      300,
		DockerImage: "horus/web:latest",
	}, "HORUS{web}")
	result, err := client.DeployExercise(ctx, exercise.ID, api.DeployForm{TTLMinutes: 30})
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(result.Connection) == 0 {
		t.Fatal("Expected connection")
	}
	containers, err := client.ObserveContainers(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(containers) != 1 || containers[0].Connection != result.Connection {
		t.Fatalf("Unexpected containers: %+v", containers)
	}
	server.AddOrphans(2)
	sync, err := client.SyncContainers(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if sync.Removed != 2 {
		t.Fatalf("Expected 2 removed, got %d", sync.Removed)
	}
	if err := client.DeleteContainer(ctx, containers[0].ID); err != nil {
		t.Fatal("Error:", err)
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	client := api.NewClient(url)
	_, err := client.Me(context.Background())
	var transport *api.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if detail := api.Detail(err, "fallback"); detail != api.CommunicationError {
		t.Fatalf("Unexpected detail: %q", detail)
	}
}

func TestClientErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	client := api.NewClient(server.URL)
	_, err := client.ObserveTags(context.Background())
	if code := api.StatusCode(err); code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", code)
	}
	if detail := api.Detail(err, "fallback"); detail != "fallback" {
		t.Fatalf("Unexpected detail: %q", detail)
	}
}

func TestClientPathEscape(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()
	client := api.NewClient(server.URL + "/")
	if _, err := client.ObserveScoreboard(context.Background(), "a/b"); err != nil {
		t.Fatal("Error:", err)
	}
	if path != "/scoreboard/a%2Fb" {
		t.Fatalf("Unexpected path: %q", path)
	}
}

func TestTimeWithoutZone(t *testing.T) {
	var competition api.Competition
	if err := json.Unmarshal([]byte(`{
		"start_date": "2025-02-01T08:30:00",
		"end_date": "2025-02-02T08:30:00.123456Z"
	}`), &competition); err != nil {
		t.Fatal("Error:", err)
	}
	if !competition.StartDate.Equal(time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("Unexpected start: %v", competition.StartDate)
	}
	if competition.EndDate.Location() != time.UTC {
		t.Fatalf("Expected UTC, got %v", competition.EndDate.Location())
	}
	if err := json.Unmarshal([]byte(`{"start_date": "yesterday"}`), &competition); err == nil {
		t.Fatal("Expected error")
	}
}
