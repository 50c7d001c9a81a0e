// Package testenv implements in-memory backend used by tests.
//
// Server implements HTTP contract of CTF backend: cookie sessions,
// competitions, exercises, tags, containers, solves and scoreboards.
package testenv

import (
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/horusctf/horus/internal/api"
)

// Request represents request recorded by server.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

type fault struct {
	code   int
	detail string
}

type userRecord struct {
	api.User
	password string
}

type exerciseRecord struct {
	api.Exercise
	flag string
}

// Server represents fake backend.
type Server struct {
	*httptest.Server
	Echo *echo.Echo
	Now  time.Time

	mutex        sync.Mutex
	users        []*userRecord
	sessions     map[string]string
	competitions []*api.Competition
	enrollments  map[string]map[string]bool
	exercises    []*exerciseRecord
	tags         []*api.Tag
	exerciseTags map[string][]string
	linked       map[string][]string
	containers   []*api.Container
	orphans      int
	solves       []api.Solve
	faults       map[string]fault
	requests     []Request
	nextPort     int
}

// NewServer starts fake backend that is closed with test cleanup.
func NewServer(tb testing.TB) *Server {
	s := &Server{
		Echo:         echo.New(),
		Now:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		sessions:     map[string]string{},
		enrollments:  map[string]map[string]bool{},
		exerciseTags: map[string][]string{},
		linked:       map[string][]string{},
		faults:       map[string]fault{},
		nextPort:     30000,
	}
	s.Echo.HideBanner, s.Echo.HidePort = true, true
	s.Echo.Use(s.recordRequest, s.injectFault)
	s.register()
	s.Server = httptest.NewServer(s.Echo)
	tb.Cleanup(s.Close)
	return s
}

// Fail makes every matching request fail with specified code and detail.
func (s *Server) Fail(method, path string, code int, detail string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.faults[method+" "+path] = fault{code: code, detail: detail}
}

// Recover removes all injected faults.
func (s *Server) Recover() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.faults = map[string]fault{}
}

// Requests returns recorded requests.
func (s *Server) Requests() []Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests forgets recorded requests.
func (s *Server) ResetRequests() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.requests = nil
}

// CountRequests returns amount of recorded requests with method and path.
func (s *Server) CountRequests(method, path string) int {
	count := 0
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			count++
		}
	}
	return count
}

func (s *Server) recordRequest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			data, err := io.ReadAll(req.Body)
			if err != nil {
				return err
			}
			body = data
			req.Body = io.NopCloser(bytes.NewReader(data))
		}
		s.mutex.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Body:   body,
		})
		s.mutex.Unlock()
		return next(c)
	}
}

func (s *Server) injectFault(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		s.mutex.Lock()
		f, ok := s.faults[req.Method+" "+req.URL.Path]
		s.mutex.Unlock()
		if ok {
			return detail(c, f.code, f.detail)
		}
		return next(c)
	}
}

// AddUser creates account with password.
func (s *Server) AddUser(form api.RegisterUserForm, admin bool) api.User {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user := &userRecord{
		User: api.User{
			ID:       uuid.NewString(),
			Name:     form.Name,
			Surname:  form.Surname,
			Username: form.Username,
			Email:    form.Email,
			IsAdmin:  admin,
		},
		password: form.Password,
	}
	s.users = append(s.users, user)
	return user.User
}

// AddCompetition creates competition, empty ID is generated.
func (s *Server) AddCompetition(competition api.Competition) api.Competition {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(competition.ID) == 0 {
		competition.ID = uuid.NewString()
	}
	s.competitions = append(s.competitions, &competition)
	return competition
}

// Enroll adds user to competition.
func (s *Server) Enroll(userID, competitionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.enroll(userID, competitionID)
}

func (s *Server) enroll(userID, competitionID string) {
	if s.enrollments[userID] == nil {
		s.enrollments[userID] = map[string]bool{}
	}
	s.enrollments[userID][competitionID] = true
}

// AddExercise creates exercise with flag.
func (s *Server) AddExercise(exercise api.Exercise, flag string) api.Exercise {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(exercise.ID) == 0 {
		exercise.ID = uuid.NewString()
	}
	if exercise.Tags == nil {
		exercise.Tags = []api.Tag{}
	}
	s.exercises = append(s.exercises, &exerciseRecord{Exercise: exercise, flag: flag})
	return exercise
}

// Flag returns current flag of exercise.
func (s *Server) Flag(exerciseID string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if exercise := s.findExercise(exerciseID); exercise != nil {
		return exercise.flag
	}
	return ""
}

// LinkExercise adds exercise to competition.
func (s *Server) LinkExercise(competitionID, exerciseID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.linked[competitionID] = appendUnique(s.linked[competitionID], exerciseID)
}

// AddTag creates tag.
func (s *Server) AddTag(name string) api.Tag {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tag := &api.Tag{ID: uuid.NewString(), Name: name}
	s.tags = append(s.tags, tag)
	return *tag
}

// ExerciseTags returns IDs of tags linked to exercise.
func (s *Server) ExerciseTags(exerciseID string) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.exerciseTags[exerciseID]...)
}

// AddSolve records solve, empty ID and timestamp are generated.
func (s *Server) AddSolve(solve api.Solve) api.Solve {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(solve.ID) == 0 {
		solve.ID = uuid.NewString()
	}
	if solve.Timestamp.IsZero() {
		solve.Timestamp = api.Time{Time: s.Now}
	}
	s.solves = append(s.solves, solve)
	return solve
}

// AddContainer registers running container.
func (s *Server) AddContainer(container api.Container) api.Container {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(container.ID) == 0 {
		container.ID = uuid.NewString()
	}
	s.containers = append(s.containers, &container)
	return container
}

// Containers returns registered containers.
func (s *Server) Containers() []api.Container {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var result []api.Container
	for _, container := range s.containers {
		result = append(result, *container)
	}
	return result
}

// AddOrphans sets amount of records removed by next sync.
func (s *Server) AddOrphans(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.orphans += n
}

// User returns account by ID.
func (s *Server) User(id string) (api.User, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if user := s.findUser(id); user != nil {
		return user.User, true
	}
	return api.User{}, false
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []string, id string) []string {
	result := ids[:0]
	for _, v := range ids {
		if v != id {
			result = append(result, v)
		}
	}
	return result
}

func detail(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"detail": message})
}

func (s *Server) nextConnection() string {
	s.nextPort++
	return fmt.Sprintf("http://127.0.0.1:%d", s.nextPort)
}
