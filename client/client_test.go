package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/horusctf/horus/internal/testenv"
)

func TestClient(t *testing.T) {
	server := testenv.NewServer(t)
	server.AddUser(RegisterUserForm{
		Username: "root", Email: "root@horus.local", Password: "qwerty123",
	}, true)
	ctx := context.Background()
	client := NewClient(server.URL)
	if _, err := client.Me(ctx); StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("Expected unauthorized, got %v", err)
	}
	if err := client.Login(ctx, LoginForm{
		Email: "root@horus.local", Password: "qwerty123",
	}); err != nil {
		t.Fatal("Error:", err)
	}
	other := NewClient(server.URL, WithSessionCookie(client.SessionCookie()))
	user, err := other.Me(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if user.Username != "root" || !user.IsAdmin {
		t.Fatalf("Unexpected user: %+v", user)
	}
	if _, err := other.ObserveCompetition(ctx, "missing"); Detail(err, "") != "Competition not found" {
		t.Fatalf("Unexpected error: %v", err)
	}
}
