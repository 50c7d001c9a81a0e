package managers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/sync/errgroup"

	"github.com/horusctf/horus/internal/api"
)

// ExerciseCatalog contains exercises with all available tags.
type ExerciseCatalog struct {
	Exercises api.Exercises
	Tags      api.Tags
}

// Exercise returns exercise by id.
func (c ExerciseCatalog) Exercise(id string) (api.Exercise, bool) {
	for _, exercise := range c.Exercises {
		if SameID(exercise.ID, id) {
			return exercise, true
		}
	}
	return api.Exercise{}, false
}

// ExerciseForm represents exercise create and edit form.
//
// Form is in edit mode when ID is not empty. Blank flag means that flag
// should not be changed.
type ExerciseForm struct {
	ID          string   `json:"-"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Points      int      `json:"points"`
	Flag        string   `json:"flag"`
	IsActive    bool     `json:"is_active"`
	DockerImage string   `json:"docker_image"`
	TagIDs      []string `json:"-"`
}

// ExerciseFormFrom returns edit form of exercise.
func ExerciseFormFrom(exercise api.Exercise) ExerciseForm {
	form := ExerciseForm{
		ID:          exercise.ID,
		Name:        exercise.Name,
		Description: exercise.Description,
		Difficulty:  exercise.Difficulty,
		Points:      exercise.Points,
		IsActive:    exercise.IsActive,
		DockerImage: exercise.DockerImage,
	}
	for _, tag := range exercise.Tags {
		form.TagIDs = append(form.TagIDs, tag.ID)
	}
	return form
}

func (f ExerciseForm) Editing() bool {
	return len(f.ID) > 0
}

var errBlankFlag = errors.New("cannot be blank")

// rejectBlankFlag rejects flags made only of whitespace. Empty flag is
// left to other rules, since it means "keep current flag" in edit mode.
func rejectBlankFlag(value any) error {
	if s, ok := value.(string); ok && len(s) > 0 && len(strings.TrimSpace(s)) == 0 {
		return errBlankFlag
	}
	return nil
}

func (f ExerciseForm) Validate() error {
	flagRules := []validation.Rule{validation.By(rejectBlankFlag)}
	if !f.Editing() {
		flagRules = append(flagRules, validation.Required)
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&f.Difficulty, validation.Required, validation.In(
			api.DifficultyEasy, api.DifficultyMedium, api.DifficultyHard,
		)),
		validation.Field(&f.Points, validation.Min(0)),
		validation.Field(&f.Flag, flagRules...),
	)
}

// Payload returns request payload of form.
//
// Flag is included verbatim only when it is not empty.
func (f ExerciseForm) Payload() api.ExerciseForm {
	payload := api.ExerciseForm{
		Name:        f.Name,
		Description: f.Description,
		Difficulty:  f.Difficulty,
		Points:      f.Points,
		IsActive:    f.IsActive,
		DockerImage: strings.TrimSpace(f.DockerImage),
	}
	if len(f.Flag) > 0 {
		flag := f.Flag
		payload.Flag = &flag
	}
	return payload
}

// AdminExercises represents exercise management page.
type AdminExercises struct {
	core    *Core
	catalog *Resource[ExerciseCatalog]
	batch   []BatchOption
}

func NewAdminExercises(core *Core, options ...BatchOption) *AdminExercises {
	return &AdminExercises{
		core:    core,
		catalog: NewResource(core, "exercise_catalog", loadExerciseCatalog(core.Client)),
		batch:   options,
	}
}

func loadExerciseCatalog(client *api.Client) Loader[ExerciseCatalog] {
	return func(ctx context.Context) (ExerciseCatalog, error) {
		var catalog ExerciseCatalog
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			exercises, err := client.ObserveExercises(ctx)
			catalog.Exercises = exercises
			return err
		})
		g.Go(func() error {
			tags, err := client.ObserveTags(ctx)
			catalog.Tags = tags
			return err
		})
		if err := g.Wait(); err != nil {
			return ExerciseCatalog{}, err
		}
		return catalog, nil
	}
}

func (p *AdminExercises) Load(ctx context.Context) error {
	return p.catalog.Reload(ctx)
}

func (p *AdminExercises) Close() {
	p.catalog.Close()
}

func (p *AdminExercises) Catalog() ExerciseCatalog {
	return p.catalog.Value()
}

// Save creates or updates exercise.
//
// On create selected tags are linked one by one after exercise is
// created. Tag links that were applied are not rolled back on failure.
// On update tags are not touched, see ToggleTag.
func (p *AdminExercises) Save(ctx context.Context, form ExerciseForm) (BatchResults, error) {
	var results BatchResults
	err := p.catalog.Mutate(ctx, "Unable to save exercise", func(ctx context.Context) (string, error) {
		if err := form.Validate(); err != nil {
			return "", wrapValidation(err)
		}
		if form.Editing() {
			if _, err := p.core.Client.UpdateExercise(ctx, form.ID, form.Payload()); err != nil {
				return "", err
			}
			return "Exercise updated", nil
		}
		exercise, err := p.core.Client.CreateExercise(ctx, form.Payload())
		if err != nil {
			return "", err
		}
		results = RunBatch(ctx, form.TagIDs, func(ctx context.Context, tagID string) error {
			return p.core.Client.LinkExerciseTag(ctx, exercise.ID, tagID)
		}, p.batch...)
		if err := results.Err(); err != nil {
			return "", fmt.Errorf("exercise created, tags linking failed: %w", err)
		}
		return "Exercise created", nil
	})
	return results, err
}

// ToggleTag immediately links or unlinks tag of existing exercise.
func (p *AdminExercises) ToggleTag(ctx context.Context, exerciseID, tagID string) error {
	return p.catalog.Mutate(ctx, "Unable to update exercise tags", func(ctx context.Context) (string, error) {
		exercise, ok := p.Catalog().Exercise(exerciseID)
		if !ok {
			return "", fmt.Errorf("exercise %q is not loaded", exerciseID)
		}
		for _, tag := range exercise.Tags {
			if SameID(tag.ID, tagID) {
				if err := p.core.Client.UnlinkExerciseTag(ctx, exercise.ID, tag.ID); err != nil {
					return "", err
				}
				return "Tag removed", nil
			}
		}
		if err := p.core.Client.LinkExerciseTag(ctx, exercise.ID, tagID); err != nil {
			return "", err
		}
		return "Tag added", nil
	})
}

func (p *AdminExercises) Delete(ctx context.Context, id string) error {
	return p.catalog.Mutate(ctx, "Unable to delete exercise", func(ctx context.Context) (string, error) {
		if err := p.core.Client.DeleteExercise(ctx, id); err != nil {
			return "", err
		}
		return "Exercise deleted", nil
	})
}

type deployForm struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// Deploy starts container of exercise.
//
// TTL is specified in minutes, zero means unlimited.
func (p *AdminExercises) Deploy(ctx context.Context, id string, ttlMinutes int) (api.DeployResult, error) {
	var result api.DeployResult
	err := p.catalog.Mutate(ctx, "Unable to deploy exercise", func(ctx context.Context) (string, error) {
		form := deployForm{TTLMinutes: ttlMinutes}
		if err := validation.ValidateStruct(&form,
			validation.Field(&form.TTLMinutes, validation.Min(0)),
		); err != nil {
			return "", wrapValidation(err)
		}
		var err error
		result, err = p.core.Client.DeployExercise(ctx, id, api.DeployForm{
			TTLMinutes: form.TTLMinutes,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Container deployed: %s", result.Connection), nil
	})
	return result, err
}

// CompetitionLinks contains all competitions and competitions linked
// with exercise.
type CompetitionLinks struct {
	All    []api.Competition
	Linked api.Competitions
}

// IsLinked returns true if competition is linked with exercise.
func (l CompetitionLinks) IsLinked(competitionID string) bool {
	for _, competition := range l.Linked {
		if SameID(competition.ID, competitionID) {
			return true
		}
	}
	return false
}

// CompetitionLinksModal represents modal with competitions of exercise.
type CompetitionLinksModal struct {
	core       *Core
	exerciseID string
	links      *Resource[CompetitionLinks]
}

func NewCompetitionLinksModal(core *Core, exerciseID string) *CompetitionLinksModal {
	return &CompetitionLinksModal{
		core:       core,
		exerciseID: exerciseID,
		links: NewResource(core, "competition_links", func(ctx context.Context) (CompetitionLinks, error) {
			var links CompetitionLinks
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				competitions, err := core.Client.ObserveCompetitions(ctx)
				links.All = SortCompetitions(competitions)
				return err
			})
			g.Go(func() error {
				linked, err := core.Client.ObserveExerciseCompetitions(ctx, exerciseID)
				links.Linked = linked
				return err
			})
			if err := g.Wait(); err != nil {
				return CompetitionLinks{}, err
			}
			return links, nil
		}),
	}
}

func (m *CompetitionLinksModal) Load(ctx context.Context) error {
	return m.links.Reload(ctx)
}

func (m *CompetitionLinksModal) Close() {
	m.links.Close()
}

func (m *CompetitionLinksModal) Links() CompetitionLinks {
	return m.links.Value()
}

// Toggle links exercise with competition or unlinks it if already linked.
func (m *CompetitionLinksModal) Toggle(ctx context.Context, competitionID string) error {
	return m.links.Mutate(ctx, "Unable to update competition link", func(ctx context.Context) (string, error) {
		if m.Links().IsLinked(competitionID) {
			if err := m.core.Client.UnlinkExerciseCompetition(ctx, m.exerciseID, competitionID); err != nil {
				return "", err
			}
			return "Exercise unlinked from competition", nil
		}
		if err := m.core.Client.LinkExerciseCompetition(ctx, m.exerciseID, competitionID); err != nil {
			return "", err
		}
		return "Exercise linked to competition", nil
	})
}
