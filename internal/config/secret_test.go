package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataSecret(t *testing.T) {
	secret := Secret{Type: DataSecret, Data: "qwerty123"}
	value, err := secret.GetValue()
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, value, "qwerty123")
}

func TestFileSecret(t *testing.T) {
	file := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(file, []byte("qwerty123\r\n"), 0o600); err != nil {
		t.Fatal("Error:", err)
	}
	secret := Secret{Type: FileSecret, Data: file}
	value, err := secret.GetValue()
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, value, "qwerty123")
	if err := os.Remove(file); err != nil {
		t.Fatal("Error:", err)
	}
	// Value is cached after first read.
	value, err = secret.GetValue()
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, value, "qwerty123")
	missing := Secret{Type: FileSecret, Data: file}
	if _, err := missing.GetValue(); err == nil {
		t.Fatal("Expected error")
	}
}

func TestEnvSecret(t *testing.T) {
	t.Setenv("HORUS_TEST_SECRET", "qwerty123")
	secret := Secret{Type: EnvSecret, Data: "HORUS_TEST_SECRET"}
	value, err := secret.GetValue()
	if err != nil {
		t.Fatal("Error:", err)
	}
	testExpect(t, value, "qwerty123")
	missing := Secret{Type: EnvSecret, Data: "HORUS_TEST_SECRET_MISSING"}
	if _, err := missing.GetValue(); err == nil {
		t.Fatal("Expected error")
	}
}

func TestUnknownSecret(t *testing.T) {
	secret := Secret{Type: "vault", Data: "path"}
	if _, err := secret.GetValue(); err == nil {
		t.Fatal("Expected error")
	}
}
