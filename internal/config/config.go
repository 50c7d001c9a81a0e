package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// Version contains version of horus console.
var Version = "development"

const (
	// DefaultURL is used when neither config nor environment sets API address.
	DefaultURL = "http://localhost:8082"
	// URLEnv overrides API address from config.
	URLEnv = "HORUS_API_URL"
	// ConfigEnv contains path to config file.
	ConfigEnv = "HORUS_CONFIG"
)

// Config stores configuration for horus console.
type Config struct {
	// API contains backend connection config.
	API API `json:"api"`
	// Credentials are used for non-interactive login.
	Credentials *Credentials `json:"credentials,omitempty"`
	// LogLevel contains level of logging.
	//
	// You can use following values:
	//  * debug
	//  * info
	//  * warn (default)
	//  * error
	//  * off
	LogLevel LogLevel `json:"log_level,omitempty"`
}

// API contains backend connection config.
type API struct {
	URL     string   `json:"url"`
	Timeout Duration `json:"timeout,omitempty"`
	// Session contains value of session cookie.
	Session *Secret `json:"session,omitempty"`
}

// Credentials contains login form values.
type Credentials struct {
	Email    string `json:"email"`
	Password Secret `json:"password"`
}

// Default returns config with default values.
func Default() Config {
	return Config{
		API: API{
			URL:     DefaultURL,
			Timeout: Duration(10 * time.Second),
		},
		LogLevel: LogLevel(log.WARN),
	}
}

// Duration represents duration encoded as string ("10s", "1m").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		var n int64
		if err := json.Unmarshal(bytes, &n); err != nil {
			return err
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LogLevel represents level of logging.
type LogLevel log.Lvl

func (l LogLevel) MarshalText() ([]byte, error) {
	switch log.Lvl(l) {
	case log.DEBUG:
		return []byte("debug"), nil
	case log.INFO:
		return []byte("info"), nil
	case log.WARN:
		return []byte("warn"), nil
	case log.ERROR:
		return []byte("error"), nil
	case log.OFF:
		return []byte("off"), nil
	}
	return nil, fmt.Errorf("unknown level: %v", l)
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "debug":
		*l = LogLevel(log.DEBUG)
	case "info":
		*l = LogLevel(log.INFO)
	case "warn", "warning":
		*l = LogLevel(log.WARN)
	case "error":
		*l = LogLevel(log.ERROR)
	case "off":
		*l = LogLevel(log.OFF)
	default:
		return fmt.Errorf("unknown level: %q", text)
	}
	return nil
}

var configFuncs = template.FuncMap{
	"json": func(value any) (string, error) {
		bytes, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	},
	"file": func(name string) (string, error) {
		bytes, err := os.ReadFile(name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(bytes), "\r\n"), nil
	},
	"env": os.Getenv,
}

// LoadFromFile loads configuration from json file.
//
// File is rendered as text/template before decoding, so secrets can
// be injected with {{ file "path" | json }} or {{ env "NAME" | json }}.
func LoadFromFile(file string) (Config, error) {
	tmpl, err := template.New(filepath.Base(file)).
		Funcs(configFuncs).
		Option("missingkey=error").
		ParseFiles(file)
	if err != nil {
		return Config{}, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(buf.Bytes(), &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Load loads config from the first existing file and environment.
//
// Variables from ".env" file in working directory are loaded into
// process environment first. Empty file names are skipped. When no file
// exists default config is used.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	for _, file := range files {
		if len(file) == 0 {
			continue
		}
		if _, err := os.Stat(file); err == nil {
			return LoadFromFile(file)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	cfg := Default()
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if url, ok := os.LookupEnv(URLEnv); ok && len(url) > 0 {
		cfg.API.URL = url
	}
	cfg.API.URL = strings.TrimRight(cfg.API.URL, "/")
	if len(cfg.API.URL) == 0 {
		cfg.API.URL = DefaultURL
	}
}
