package managers

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/horusctf/horus/internal/api"
)

func loadSortedCompetitions(client *api.Client) Loader[[]api.Competition] {
	return func(ctx context.Context) ([]api.Competition, error) {
		competitions, err := client.ObserveCompetitions(ctx)
		if err != nil {
			return nil, err
		}
		return SortCompetitions(competitions), nil
	}
}

// CompetitionsPage represents list of competitions of current user.
type CompetitionsPage struct {
	core         *Core
	competitions *Resource[[]api.Competition]
}

func NewCompetitionsPage(core *Core) *CompetitionsPage {
	return &CompetitionsPage{
		core: core,
		competitions: NewResource(
			core, "competitions", loadSortedCompetitions(core.Client),
		),
	}
}

func (p *CompetitionsPage) Load(ctx context.Context) error {
	return p.competitions.Reload(ctx)
}

func (p *CompetitionsPage) Close() {
	p.competitions.Close()
}

// Competitions returns sorted competitions.
func (p *CompetitionsPage) Competitions() []api.Competition {
	return p.competitions.Value()
}

type joinForm struct {
	InviteCode string `json:"invite_code"`
}

// Join enrolls current user into competition with invite code.
func (p *CompetitionsPage) Join(ctx context.Context, inviteCode string) error {
	return p.competitions.Mutate(ctx, "Unable to join competition", func(ctx context.Context) (string, error) {
		form := joinForm{InviteCode: strings.TrimSpace(inviteCode)}
		if err := validation.ValidateStruct(&form,
			validation.Field(&form.InviteCode, validation.Required),
		); err != nil {
			return "", wrapValidation(err)
		}
		if err := p.core.Client.JoinCompetition(ctx, api.JoinCompetitionForm{
			InviteCode: form.InviteCode,
		}); err != nil {
			return "", err
		}
		return "Joined competition", nil
	})
}

// CompetitionForm represents competition create and edit form.
//
// Form is in edit mode when ID is not empty.
type CompetitionForm struct {
	ID         string   `json:"-"`
	Name       string   `json:"name"`
	StartDate  api.Time `json:"start_date"`
	EndDate    api.Time `json:"end_date"`
	Status     string   `json:"status"`
	InviteCode string   `json:"invite_code"`
}

// CompetitionFormFrom returns edit form of competition.
func CompetitionFormFrom(competition api.Competition) CompetitionForm {
	return CompetitionForm{
		ID:         competition.ID,
		Name:       competition.Name,
		StartDate:  competition.StartDate,
		EndDate:    competition.EndDate,
		Status:     competition.Status,
		InviteCode: competition.InviteCode,
	}
}

// Editing returns true if form edits existing competition.
func (f CompetitionForm) Editing() bool {
	return len(f.ID) > 0
}

// InviteCodeEditable returns false in edit mode.
func (f CompetitionForm) InviteCodeEditable() bool {
	return !f.Editing()
}

var errTimeRequired = errors.New("cannot be blank")

func requireTime(value any) error {
	if t, ok := value.(api.Time); ok && t.IsZero() {
		return errTimeRequired
	}
	return nil
}

func (f CompetitionForm) Validate() error {
	inviteRules := []validation.Rule{validation.Length(0, 64)}
	if !f.Editing() {
		inviteRules = append(inviteRules, validation.Required)
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&f.StartDate, validation.By(requireTime)),
		validation.Field(&f.EndDate, validation.By(requireTime), validation.By(func(any) error {
			if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate.Time) {
				return errors.New("must not be before start date")
			}
			return nil
		})),
		validation.Field(&f.Status, validation.Required, validation.In(
			api.StatusActive, api.StatusUpcoming, api.StatusFinished,
		)),
		validation.Field(&f.InviteCode, inviteRules...),
	)
}

// AdminCompetitions represents competition management page.
type AdminCompetitions struct {
	core         *Core
	competitions *Resource[[]api.Competition]
}

func NewAdminCompetitions(core *Core) *AdminCompetitions {
	return &AdminCompetitions{
		core: core,
		competitions: NewResource(
			core, "admin_competitions", loadSortedCompetitions(core.Client),
		),
	}
}

func (p *AdminCompetitions) Load(ctx context.Context) error {
	return p.competitions.Reload(ctx)
}

func (p *AdminCompetitions) Close() {
	p.competitions.Close()
}

func (p *AdminCompetitions) Competitions() []api.Competition {
	return p.competitions.Value()
}

// Save creates or updates competition.
//
// Invite code is never sent on update.
func (p *AdminCompetitions) Save(ctx context.Context, form CompetitionForm) error {
	return p.competitions.Mutate(ctx, "Unable to save competition", func(ctx context.Context) (string, error) {
		if err := form.Validate(); err != nil {
			return "", wrapValidation(err)
		}
		if form.Editing() {
			if _, err := p.core.Client.UpdateCompetition(ctx, form.ID, api.UpdateCompetitionForm{
				Name:      form.Name,
				StartDate: form.StartDate,
				EndDate:   form.EndDate,
				Status:    form.Status,
			}); err != nil {
				return "", err
			}
			return "Competition updated", nil
		}
		if _, err := p.core.Client.CreateCompetition(ctx, api.CreateCompetitionForm{
			Name:       form.Name,
			StartDate:  form.StartDate,
			EndDate:    form.EndDate,
			Status:     form.Status,
			InviteCode: form.InviteCode,
		}); err != nil {
			return "", err
		}
		return "Competition created", nil
	})
}

func (p *AdminCompetitions) Delete(ctx context.Context, id string) error {
	return p.competitions.Mutate(ctx, "Unable to delete competition", func(ctx context.Context) (string, error) {
		if err := p.core.Client.DeleteCompetition(ctx, id); err != nil {
			return "", err
		}
		return "Competition deleted", nil
	})
}

// CompetitionExercises represents modal with exercises of competition.
type CompetitionExercises struct {
	core          *Core
	competitionID string
	exercises     *Resource[api.Exercises]
}

func NewCompetitionExercises(core *Core, competitionID string) *CompetitionExercises {
	return &CompetitionExercises{
		core:          core,
		competitionID: competitionID,
		exercises: NewResource(core, "competition_exercises", func(ctx context.Context) (api.Exercises, error) {
			return core.Client.ObserveCompetitionExercises(ctx, competitionID)
		}),
	}
}

func (m *CompetitionExercises) Load(ctx context.Context) error {
	return m.exercises.Reload(ctx)
}

func (m *CompetitionExercises) Close() {
	m.exercises.Close()
}

func (m *CompetitionExercises) Exercises() api.Exercises {
	return m.exercises.Value()
}

// Unlink removes exercise from competition.
func (m *CompetitionExercises) Unlink(ctx context.Context, exerciseID string) error {
	return m.exercises.Mutate(ctx, "Unable to unlink exercise", func(ctx context.Context) (string, error) {
		if err := m.core.Client.UnlinkExerciseCompetition(ctx, exerciseID, m.competitionID); err != nil {
			return "", err
		}
		return "Exercise removed from competition", nil
	})
}
