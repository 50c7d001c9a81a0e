package testenv

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/horusctf/horus/internal/api"
)

const authUserKey = "auth_user"

func (s *Server) register() {
	e := s.Echo
	e.POST("/auth/register", s.registerUser)
	e.POST("/auth/login", s.loginUser)
	e.POST("/auth/logout", s.logoutUser)
	e.GET("/auth/me", s.observeMe, s.requireAuth)
	e.PUT("/auth/me", s.updateMe, s.requireAuth)
	e.GET("/auth/users", s.observeUsers, s.requireAdmin)
	e.PUT("/auth/users/:user", s.updateUser, s.requireAdmin)
	e.DELETE("/auth/users/:user", s.deleteUser, s.requireAdmin)
	e.GET("/competitions/", s.observeCompetitions, s.requireAuth)
	e.POST("/competitions/", s.createCompetition, s.requireAdmin)
	e.POST("/competitions/join", s.joinCompetition, s.requireAuth)
	e.GET("/competitions/:competition", s.observeCompetition, s.requireAuth)
	e.PATCH("/competitions/:competition", s.updateCompetition, s.requireAdmin)
	e.DELETE("/competitions/:competition", s.deleteCompetition, s.requireAdmin)
	e.GET("/competitions/:competition/exercises", s.observeCompetitionExercises, s.requireAuth)
	e.GET("/exercises/", s.observeExercises, s.requireAuth)
	e.POST("/exercises/", s.createExercise, s.requireAdmin)
	e.POST("/exercises/submit", s.submitFlag, s.requireAuth)
	e.GET("/exercises/my-solves", s.observeMySolves, s.requireAuth)
	e.PATCH("/exercises/:exercise", s.updateExercise, s.requireAdmin)
	e.DELETE("/exercises/:exercise", s.deleteExercise, s.requireAdmin)
	e.POST("/exercises/:exercise/tags/:tag", s.linkExerciseTag, s.requireAdmin)
	e.DELETE("/exercises/:exercise/tags/:tag", s.unlinkExerciseTag, s.requireAdmin)
	e.POST("/exercises/:exercise/deploy", s.deployExercise, s.requireAdmin)
	e.GET("/exercises/:exercise/competitions", s.observeExerciseCompetitions, s.requireAdmin)
	e.POST("/exercises/:exercise/link-competition/:competition", s.linkExerciseCompetition, s.requireAdmin)
	e.DELETE("/exercises/:exercise/competition/:competition", s.unlinkExerciseCompetition, s.requireAdmin)
	e.GET("/tags/", s.observeTags, s.requireAuth)
	e.POST("/tags/", s.createTag, s.requireAdmin)
	e.PATCH("/tags/:tag", s.updateTag, s.requireAdmin)
	e.DELETE("/tags/:tag", s.deleteTag, s.requireAdmin)
	e.GET("/containers/", s.observeContainers, s.requireAdmin)
	e.POST("/containers/sync", s.syncContainers, s.requireAdmin)
	e.DELETE("/containers/:container", s.deleteContainer, s.requireAdmin)
	e.GET("/scoreboard/global", s.observeGlobalScoreboard, s.requireAuth)
	e.GET("/scoreboard/:competition", s.observeScoreboard, s.requireAuth)
}

func bind(c echo.Context, form any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(form); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "Invalid JSON body")
	}
	return nil
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(api.SessionCookie)
		if err != nil {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}
		s.mutex.Lock()
		userID, ok := s.sessions[cookie.Value]
		var user *userRecord
		if ok {
			user = s.findUser(userID)
		}
		s.mutex.Unlock()
		if user == nil {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}
		c.Set(authUserKey, user.User)
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return s.requireAuth(func(c echo.Context) error {
		if !c.Get(authUserKey).(api.User).IsAdmin {
			return detail(c, http.StatusForbidden, "Admin privileges required")
		}
		return next(c)
	})
}

func authUser(c echo.Context) api.User {
	return c.Get(authUserKey).(api.User)
}

func (s *Server) findUser(id string) *userRecord {
	for _, user := range s.users {
		if user.ID == id {
			return user
		}
	}
	return nil
}

func (s *Server) findCompetition(id string) *api.Competition {
	for _, competition := range s.competitions {
		if strings.EqualFold(competition.ID, id) {
			return competition
		}
	}
	return nil
}

func (s *Server) findExercise(id string) *exerciseRecord {
	for _, exercise := range s.exercises {
		if exercise.ID == id {
			return exercise
		}
	}
	return nil
}

func (s *Server) findTag(id string) *api.Tag {
	for _, tag := range s.tags {
		if tag.ID == id {
			return tag
		}
	}
	return nil
}

func (s *Server) registerUser(c echo.Context) error {
	var form api.RegisterUserForm
	if err := bind(c, &form); err != nil {
		return err
	}
	var missing []map[string]any
	for name, value := range map[string]string{
		"email":    form.Email,
		"password": form.Password,
		"username": form.Username,
	} {
		if len(value) == 0 {
			missing = append(missing, map[string]any{
				"loc": []string{"body", name},
				"msg": "field required",
			})
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool {
			return missing[i]["loc"].([]string)[1] < missing[j]["loc"].([]string)[1]
		})
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"detail": missing})
	}
	s.mutex.Lock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, form.Email) {
			s.mutex.Unlock()
			return detail(c, http.StatusBadRequest, "Email already registered")
		}
	}
	s.mutex.Unlock()
	user := s.AddUser(form, false)
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) loginUser(c echo.Context) error {
	var form api.LoginForm
	if err := bind(c, &form); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, form.Email) && user.password == form.Password {
			token := uuid.NewString()
			s.sessions[token] = user.ID
			c.SetCookie(&http.Cookie{
				Name:     api.SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
			})
			return c.JSON(http.StatusOK, map[string]string{"message": "Login successful"})
		}
	}
	return detail(c, http.StatusUnauthorized, "Incorrect password for user "+form.Email)
}

func (s *Server) logoutUser(c echo.Context) error {
	if cookie, err := c.Cookie(api.SessionCookie); err == nil {
		s.mutex.Lock()
		delete(s.sessions, cookie.Value)
		s.mutex.Unlock()
	}
	c.SetCookie(&http.Cookie{
		Name:   api.SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) observeMe(c echo.Context) error {
	return c.JSON(http.StatusOK, authUser(c))
}

func (s *Server) updateMe(c echo.Context) error {
	var form api.UpdateProfileForm
	if err := bind(c, &form); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user := s.findUser(authUser(c).ID)
	for _, other := range s.users {
		if other != user && strings.EqualFold(other.Username, form.Username) {
			return detail(c, http.StatusBadRequest, "Username already taken")
		}
	}
	user.Name = form.Name
	user.Surname = form.Surname
	user.Username = form.Username
	user.Email = form.Email
	if form.Password != nil {
		user.password = *form.Password
	}
	return c.JSON(http.StatusOK, user.User)
}

func (s *Server) observeUsers(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	users := api.Users{}
	for _, user := range s.users {
		users = append(users, user.User)
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) updateUser(c echo.Context) error {
	var form api.UpdateUserForm
	if err := bind(c, &form); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	user := s.findUser(c.Param("user"))
	if user == nil {
		return detail(c, http.StatusNotFound, "User not found")
	}
	if form.IsAdmin != nil {
		user.IsAdmin = *form.IsAdmin
	}
	return c.JSON(http.StatusOK, user.User)
}

func (s *Server) deleteUser(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("user")
	if s.findUser(id) == nil {
		return detail(c, http.StatusNotFound, "User not found")
	}
	if id == authUser(c).ID {
		return detail(c, http.StatusBadRequest, "Cannot delete yourself")
	}
	users := s.users[:0]
	for _, user := range s.users {
		if user.ID != id {
			users = append(users, user)
		}
	}
	s.users = users
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) canObserveCompetition(user api.User, id string) bool {
	return user.IsAdmin || s.enrollments[user.ID][id]
}

func (s *Server) observeCompetitions(c echo.Context) error {
	user := authUser(c)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competitions := api.Competitions{}
	for _, competition := range s.competitions {
		if s.canObserveCompetition(user, competition.ID) {
			competitions = append(competitions, *competition)
		}
	}
	return c.JSON(http.StatusOK, competitions)
}

func (s *Server) observeCompetition(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competition := s.findCompetition(c.Param("competition"))
	if competition == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	if !s.canObserveCompetition(authUser(c), competition.ID) {
		return detail(c, http.StatusForbidden, "Not enrolled")
	}
	return c.JSON(http.StatusOK, competition)
}

func (s *Server) createCompetition(c echo.Context) error {
	var form api.CreateCompetitionForm
	if err := bind(c, &form); err != nil {
		return err
	}
	s.mutex.Lock()
	for _, competition := range s.competitions {
		if competition.InviteCode == form.InviteCode {
			s.mutex.Unlock()
			return detail(c, http.StatusBadRequest, "Invite code already in use")
		}
	}
	s.mutex.Unlock()
	competition := s.AddCompetition(api.Competition{
		Name:       form.Name,
		StartDate:  form.StartDate,
		EndDate:    form.EndDate,
		InviteCode: form.InviteCode,
		Status:     form.Status,
	})
	return c.JSON(http.StatusCreated, competition)
}

func (s *Server) updateCompetition(c echo.Context) error {
	var form map[string]json.RawMessage
	if err := bind(c, &form); err != nil {
		return err
	}
	if _, ok := form["invite_code"]; ok {
		return detail(c, http.StatusBadRequest, "Invite code is immutable")
	}
	var update api.UpdateCompetitionForm
	data, _ := json.Marshal(form)
	if err := json.Unmarshal(data, &update); err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competition := s.findCompetition(c.Param("competition"))
	if competition == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	competition.Name = update.Name
	competition.StartDate = update.StartDate
	competition.EndDate = update.EndDate
	competition.Status = update.Status
	return c.JSON(http.StatusOK, competition)
}

func (s *Server) deleteCompetition(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("competition")
	if s.findCompetition(id) == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	competitions := s.competitions[:0]
	for _, competition := range s.competitions {
		if competition.ID != id {
			competitions = append(competitions, competition)
		}
	}
	s.competitions = competitions
	delete(s.linked, id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) joinCompetition(c echo.Context) error {
	var form api.JoinCompetitionForm
	if err := bind(c, &form); err != nil {
		return err
	}
	user := authUser(c)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, competition := range s.competitions {
		if competition.InviteCode == form.InviteCode {
			if s.enrollments[user.ID][competition.ID] {
				return detail(c, http.StatusBadRequest, "Already enrolled")
			}
			s.enroll(user.ID, competition.ID)
			return c.JSON(http.StatusOK, competition)
		}
	}
	return detail(c, http.StatusBadRequest, "Invalid code")
}

func (s *Server) exerciseView(exercise *exerciseRecord) api.Exercise {
	view := exercise.Exercise
	view.Tags = []api.Tag{}
	for _, id := range s.exerciseTags[exercise.ID] {
		if tag := s.findTag(id); tag != nil {
			view.Tags = append(view.Tags, *tag)
		}
	}
	view.Connection = ""
	for _, container := range s.containers {
		if container.ExerciseID == exercise.ID && container.IsActive {
			view.Connection = container.Connection
			break
		}
	}
	return view
}

func (s *Server) observeCompetitionExercises(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competition := s.findCompetition(c.Param("competition"))
	if competition == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	if !s.canObserveCompetition(authUser(c), competition.ID) {
		return detail(c, http.StatusForbidden, "Not enrolled")
	}
	exercises := api.Exercises{}
	for _, id := range s.linked[competition.ID] {
		if exercise := s.findExercise(id); exercise != nil {
			exercises = append(exercises, s.exerciseView(exercise))
		}
	}
	return c.JSON(http.StatusOK, exercises)
}

func (s *Server) observeExercises(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	exercises := api.Exercises{}
	for _, exercise := range s.exercises {
		exercises = append(exercises, s.exerciseView(exercise))
	}
	return c.JSON(http.StatusOK, exercises)
}

func (s *Server) createExercise(c echo.Context) error {
	var form api.ExerciseForm
	if err := bind(c, &form); err != nil {
		return err
	}
	if form.Flag == nil || len(*form.Flag) == 0 {
		return detail(c, http.StatusBadRequest, "Flag is required")
	}
	exercise := s.AddExercise(api.Exercise{
		Name:        form.Name,
		Description: form.Description,
		Difficulty:  form.Difficulty,
		Points:      form.Points,
		IsActive:    form.IsActive,
		DockerImage: form.DockerImage,
	}, *form.Flag)
	return c.JSON(http.StatusCreated, exercise)
}

func (s *Server) updateExercise(c echo.Context) error {
	var form map[string]json.RawMessage
	if err := bind(c, &form); err != nil {
		return err
	}
	if raw, ok := form["flag"]; ok {
		var flag string
		if err := json.Unmarshal(raw, &flag); err != nil || len(flag) == 0 {
			return detail(c, http.StatusBadRequest, "Flag can not be empty")
		}
	}
	var update api.ExerciseForm
	data, _ := json.Marshal(form)
	if err := json.Unmarshal(data, &update); err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	exercise := s.findExercise(c.Param("exercise"))
	if exercise == nil {
		return detail(c, http.StatusNotFound, "Exercise not found")
	}
	exercise.Name = update.Name
	exercise.Description = update.Description
	exercise.Difficulty = update.Difficulty
	exercise.Points = update.Points
	exercise.IsActive = update.IsActive
	exercise.DockerImage = update.DockerImage
	if update.Flag != nil {
		exercise.flag = *update.Flag
	}
	return c.JSON(http.StatusOK, s.exerciseView(exercise))
}

func (s *Server) deleteExercise(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("exercise")
	if s.findExercise(id) == nil {
		return detail(c, http.StatusNotFound, "Exercise not found")
	}
	exercises := s.exercises[:0]
	for _, exercise := range s.exercises {
		if exercise.ID != id {
			exercises = append(exercises, exercise)
		}
	}
	s.exercises = exercises
	delete(s.exerciseTags, id)
	for competition, ids := range s.linked {
		s.linked[competition] = removeID(ids, id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) linkExerciseTag(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, tagID := c.Param("exercise"), c.Param("tag")
	if s.findExercise(id) == nil || s.findTag(tagID) == nil {
		return detail(c, http.StatusNotFound, "Exercise or tag not found")
	}
	s.exerciseTags[id] = appendUnique(s.exerciseTags[id], tagID)
	return c.JSON(http.StatusOK, map[string]string{"message": "Tag linked"})
}

func (s *Server) unlinkExerciseTag(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, tagID := c.Param("exercise"), c.Param("tag")
	s.exerciseTags[id] = removeID(s.exerciseTags[id], tagID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deployExercise(c echo.Context) error {
	var form api.DeployForm
	if err := bind(c, &form); err != nil {
		return err
	}
	if form.TTLMinutes < 0 {
		return detail(c, http.StatusBadRequest, "TTL must be non-negative")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	exercise := s.findExercise(c.Param("exercise"))
	if exercise == nil {
		return detail(c, http.StatusNotFound, "Exercise not found")
	}
	if len(exercise.DockerImage) == 0 {
		return detail(c, http.StatusBadRequest, "Exercise has no docker image")
	}
	container := &api.Container{
		ID:         uuid.NewString(),
		ExerciseID: exercise.ID,
		DockerID:   strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		IsActive:   true,
		ImageTag:   exercise.DockerImage,
	}
	container.Connection = s.nextConnection()
	container.Port = s.nextPort
	s.containers = append(s.containers, container)
	return c.JSON(http.StatusCreated, api.DeployResult{
		Message:     "Container started",
		ContainerID: container.ID,
		Connection:  container.Connection,
	})
}

func (s *Server) observeExerciseCompetitions(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("exercise")
	competitions := api.Competitions{}
	for _, competition := range s.competitions {
		for _, linked := range s.linked[competition.ID] {
			if linked == id {
				competitions = append(competitions, *competition)
				break
			}
		}
	}
	return c.JSON(http.StatusOK, competitions)
}

func (s *Server) linkExerciseCompetition(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, competitionID := c.Param("exercise"), c.Param("competition")
	if s.findExercise(id) == nil || s.findCompetition(competitionID) == nil {
		return detail(c, http.StatusNotFound, "Exercise or competition not found")
	}
	s.linked[competitionID] = appendUnique(s.linked[competitionID], id)
	return c.JSON(http.StatusOK, map[string]string{"message": "Exercise linked"})
}

func (s *Server) unlinkExerciseCompetition(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id, competitionID := c.Param("exercise"), c.Param("competition")
	s.linked[competitionID] = removeID(s.linked[competitionID], id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) submitFlag(c echo.Context) error {
	var form api.SubmitFlagForm
	if err := bind(c, &form); err != nil {
		return err
	}
	user := authUser(c)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competition := s.findCompetition(form.CompetitionID)
	if competition == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	if !s.canObserveCompetition(user, competition.ID) {
		return detail(c, http.StatusForbidden, "Not enrolled")
	}
	exercise := s.findExercise(form.ExerciseID)
	if exercise == nil {
		return detail(c, http.StatusNotFound, "Exercise not found")
	}
	for _, solve := range s.solves {
		if solve.UserID == user.ID && solve.ExerciseID == exercise.ID &&
			strings.EqualFold(solve.CompetitionID, competition.ID) {
			return c.JSON(http.StatusOK, api.SubmitResult{Message: "Already solved"})
		}
	}
	if form.Content != exercise.flag {
		return c.JSON(http.StatusOK, api.SubmitResult{Message: "Wrong flag"})
	}
	s.solves = append(s.solves, api.Solve{
		ID:            uuid.NewString(),
		Timestamp:     api.Time{Time: s.Now},
		UserID:        user.ID,
		ExerciseID:    exercise.ID,
		CompetitionID: competition.ID,
		PointsAwarded: exercise.Points,
	})
	return c.JSON(http.StatusOK, api.SubmitResult{
		Success:       true,
		Message:       "Correct flag",
		PointsAwarded: exercise.Points,
	})
}

func (s *Server) observeMySolves(c echo.Context) error {
	user := authUser(c)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	solves := api.Solves{}
	for _, solve := range s.solves {
		if solve.UserID == user.ID {
			solves = append(solves, solve)
		}
	}
	return c.JSON(http.StatusOK, solves)
}

func (s *Server) observeTags(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tags := api.Tags{}
	for _, tag := range s.tags {
		tags = append(tags, *tag)
	}
	return c.JSON(http.StatusOK, tags)
}

func (s *Server) createTag(c echo.Context) error {
	var form api.TagForm
	if err := bind(c, &form); err != nil {
		return err
	}
	if len(strings.TrimSpace(form.Name)) == 0 {
		return detail(c, http.StatusBadRequest, "Tag name is required")
	}
	return c.JSON(http.StatusCreated, s.AddTag(form.Name))
}

func (s *Server) updateTag(c echo.Context) error {
	var form api.TagForm
	if err := bind(c, &form); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	tag := s.findTag(c.Param("tag"))
	if tag == nil {
		return detail(c, http.StatusNotFound, "Tag not found")
	}
	tag.Name = form.Name
	return c.JSON(http.StatusOK, tag)
}

func (s *Server) deleteTag(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("tag")
	if s.findTag(id) == nil {
		return detail(c, http.StatusNotFound, "Tag not found")
	}
	tags := s.tags[:0]
	for _, tag := range s.tags {
		if tag.ID != id {
			tags = append(tags, tag)
		}
	}
	s.tags = tags
	for exercise, ids := range s.exerciseTags {
		s.exerciseTags[exercise] = removeID(ids, id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) observeContainers(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	containers := api.Containers{}
	for _, container := range s.containers {
		containers = append(containers, *container)
	}
	return c.JSON(http.StatusOK, containers)
}

func (s *Server) syncContainers(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	removed := s.orphans
	s.orphans = 0
	return c.JSON(http.StatusOK, api.SyncResult{
		Message: "Sync completed",
		Removed: removed,
	})
}

func (s *Server) deleteContainer(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("container")
	containers := s.containers[:0]
	found := false
	for _, container := range s.containers {
		if container.ID == id {
			found = true
			continue
		}
		containers = append(containers, container)
	}
	s.containers = containers
	if !found {
		return detail(c, http.StatusNotFound, "Container not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) scoreboard(filter func(api.Solve) bool) api.Scoreboard {
	scores := map[string]int{}
	for _, solve := range s.solves {
		if filter(solve) {
			scores[solve.UserID] += solve.PointsAwarded
		}
	}
	board := api.Scoreboard{}
	for userID, score := range scores {
		entry := api.ScoreboardEntry{UserID: userID, Score: score}
		if user := s.findUser(userID); user != nil {
			entry.Username = user.Username
		}
		board = append(board, entry)
	}
	sort.Slice(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].Username < board[j].Username
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board
}

func (s *Server) observeGlobalScoreboard(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return c.JSON(http.StatusOK, s.scoreboard(func(api.Solve) bool { return true }))
}

func (s *Server) observeScoreboard(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	competition := s.findCompetition(c.Param("competition"))
	if competition == nil {
		return detail(c, http.StatusNotFound, "Competition not found")
	}
	return c.JSON(http.StatusOK, s.scoreboard(func(solve api.Solve) bool {
		return strings.EqualFold(solve.CompetitionID, competition.ID)
	}))
}
