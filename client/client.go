package client

import (
	"net/http"
	"time"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/pkg/logs"
)

type (
	ClientOption = api.ClientOption

	LoginForm             = api.LoginForm
	RegisterUserForm      = api.RegisterUserForm
	UpdateProfileForm     = api.UpdateProfileForm
	UpdateUserForm        = api.UpdateUserForm
	CreateCompetitionForm = api.CreateCompetitionForm
	UpdateCompetitionForm = api.UpdateCompetitionForm
	JoinCompetitionForm   = api.JoinCompetitionForm
	ExerciseForm          = api.ExerciseForm
	TagForm               = api.TagForm
	DeployForm            = api.DeployForm
	SubmitFlagForm        = api.SubmitFlagForm

	Time            = api.Time
	User            = api.User
	Users           = api.Users
	Competition     = api.Competition
	Competitions    = api.Competitions
	Exercise        = api.Exercise
	Exercises       = api.Exercises
	Tag             = api.Tag
	Tags            = api.Tags
	Container       = api.Container
	Containers      = api.Containers
	Solve           = api.Solve
	Solves          = api.Solves
	ScoreboardEntry = api.ScoreboardEntry
	Scoreboard      = api.Scoreboard
	DeployResult    = api.DeployResult
	SubmitResult    = api.SubmitResult
	SyncResult      = api.SyncResult

	ErrorResponse  = api.ErrorResponse
	TransportError = api.TransportError
)

const (
	StatusActive   = api.StatusActive
	StatusUpcoming = api.StatusUpcoming
	StatusFinished = api.StatusFinished

	DifficultyEasy   = api.DifficultyEasy
	DifficultyMedium = api.DifficultyMedium
	DifficultyHard   = api.DifficultyHard

	SessionCookie = api.SessionCookie
)

type Client struct {
	*api.Client
}

func WithSessionCookie(value string) ClientOption {
	return api.WithSessionCookie(value)
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return api.WithTransport(transport)
}

func WithTimeout(timeout time.Duration) ClientOption {
	return api.WithTimeout(timeout)
}

func WithLogger(logger *logs.Logger) ClientOption {
	return api.WithLogger(logger)
}

// NewClient returns new horus API client.
func NewClient(endpoint string, options ...ClientOption) *Client {
	return &Client{
		Client: api.NewClient(endpoint, options...),
	}
}

// Detail returns human readable message of error.
func Detail(err error, fallback string) string {
	return api.Detail(err, fallback)
}

// StatusCode returns HTTP status of error or zero.
func StatusCode(err error) int {
	return api.StatusCode(err)
}
