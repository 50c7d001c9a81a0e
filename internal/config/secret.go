package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

type SecretType string

const (
	DataSecret SecretType = "data"
	FileSecret SecretType = "file"
	EnvSecret  SecretType = "env"
)

// Secret stores configuration for secret data.
//
// Used for passwords and session values:
//
//	{"type": "data", "data": "qwerty123"}
//	{"type": "file", "data": "password.txt"}
//	{"type": "env", "data": "HORUS_PASSWORD"}
type Secret struct {
	Type  SecretType `json:"type"`
	Data  string     `json:"data"`
	mutex sync.Mutex
}

// GetValue returns secret value.
func (s *Secret) GetValue() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	switch s.Type {
	case FileSecret:
		bytes, err := os.ReadFile(s.Data)
		if err != nil {
			return "", err
		}
		s.Data, s.Type = strings.TrimRight(string(bytes), "\r\n"), DataSecret
	case EnvSecret:
		value, ok := os.LookupEnv(s.Data)
		if !ok {
			return "", fmt.Errorf("environment variable %q does not exist", s.Data)
		}
		s.Data, s.Type = value, DataSecret
	case "":
		s.Type = DataSecret
	}
	if s.Type == DataSecret {
		return s.Data, nil
	}
	return "", fmt.Errorf("unsupported secret type %q", s.Type)
}
