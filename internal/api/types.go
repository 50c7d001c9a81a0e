package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Competition statuses.
const (
	StatusActive   = "ativa"
	StatusUpcoming = "em_breve"
	StatusFinished = "finalizada"
)

// Exercise difficulties.
const (
	DifficultyEasy   = "facil"
	DifficultyMedium = "medio"
	DifficultyHard   = "dificil"
)

// Time represents backend timestamp.
//
// Backend may omit zone designator, such timestamps are treated as UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses backend timestamp.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Time{Time: t.UTC()}, nil
		}
	}
	return Time{}, fmt.Errorf("invalid time %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) == 0 {
		*t = Time{}
		return nil
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// User represents platform account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

// Users represents users response.
type Users []User

// Competition represents CTF competition.
type Competition struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StartDate  Time   `json:"start_date"`
	EndDate    Time   `json:"end_date"`
	InviteCode string `json:"invite_code"`
	Status     string `json:"status"`
}

// Competitions represents competitions response.
type Competitions []Competition

// Tag represents exercise tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tags represents tags response.
type Tags []Tag

// Exercise represents challenge.
//
// Flag is write-only, backend never returns it.
type Exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Difficulty  string `json:"difficulty"`
	Points      int    `json:"points"`
	DockerImage string `json:"docker_image,omitempty"`
	IsActive    bool   `json:"is_active"`
	Tags        []Tag  `json:"tags"`
	// Connection contains endpoint of running container if any.
	Connection string `json:"connection,omitempty"`
}

// Exercises represents exercises response.
type Exercises []Exercise

// Container represents running challenge instance.
type Container struct {
	ID         string `json:"id"`
	ExerciseID string `json:"exercises_id"`
	DockerID   string `json:"docker_id"`
	Connection string `json:"connection"`
	Port       int    `json:"port"`
	IsActive   bool   `json:"is_active"`
	ImageTag   string `json:"image_tag,omitempty"`
}

// Containers represents containers response.
type Containers []Container

// Solve represents accepted flag submission.
type Solve struct {
	ID            string `json:"id"`
	Timestamp     Time   `json:"timestamp"`
	UserID        string `json:"users_id"`
	ExerciseID    string `json:"exercises_id"`
	CompetitionID string `json:"competitions_id"`
	PointsAwarded int    `json:"points_awarded"`
}

// Solves represents solves response.
type Solves []Solve

// ScoreboardEntry represents ranking line.
type ScoreboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	UserID   string `json:"users_id"`
	Score    int    `json:"score"`
}

// Scoreboard represents scoreboard response.
type Scoreboard []ScoreboardEntry

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterUserForm struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileForm represents self-update form.
//
// Password is omitted when nil.
type UpdateProfileForm struct {
	Name     string  `json:"name"`
	Surname  string  `json:"surname"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password *string `json:"password,omitempty"`
}

type UpdateUserForm struct {
	IsAdmin *bool `json:"is_admin,omitempty"`
}

type CreateCompetitionForm struct {
	Name       string `json:"name"`
	StartDate  Time   `json:"start_date"`
	EndDate    Time   `json:"end_date"`
	Status     string `json:"status"`
	InviteCode string `json:"invite_code"`
}

// UpdateCompetitionForm represents competition update.
//
// Invite code is immutable and can not be updated.
type UpdateCompetitionForm struct {
	Name      string `json:"name"`
	StartDate Time   `json:"start_date"`
	EndDate   Time   `json:"end_date"`
	Status    string `json:"status"`
}

type JoinCompetitionForm struct {
	InviteCode string `json:"invite_code"`
}

// ExerciseForm represents exercise create and update payload.
//
// Flag is omitted when nil.
type ExerciseForm struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Difficulty  string  `json:"difficulty"`
	Points      int     `json:"points"`
	Flag        *string `json:"flag,omitempty"`
	IsActive    bool    `json:"is_active"`
	DockerImage string  `json:"docker_image,omitempty"`
}

type TagForm struct {
	Name string `json:"name"`
}

type DeployForm struct {
	// TTLMinutes contains container time to live, 0 means unlimited.
	TTLMinutes int `json:"ttl_minutes"`
}

type DeployResult struct {
	Message     string `json:"message,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	Connection  string `json:"connection"`
}

type SubmitFlagForm struct {
	ExerciseID    string `json:"exercises_id"`
	CompetitionID string `json:"competitions_id"`
	Content       string `json:"content"`
}

type SubmitResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	PointsAwarded int    `json:"points_awarded,omitempty"`
}

type SyncResult struct {
	Message string `json:"message,omitempty"`
	Removed int    `json:"removed"`
}
