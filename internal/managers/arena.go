package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/horusctf/horus/internal/api"
)

// ArenaState contains everything displayed in arena.
type ArenaState struct {
	CompetitionID string
	Competition   api.Competition
	Exercises     api.Exercises
	// Solves contains all solves of current user.
	Solves api.Solves
}

// Score returns sum of points awarded in this competition.
//
// Awarded points are used instead of current exercise points.
func (s ArenaState) Score() int {
	return CompetitionScore(s.Solves, s.CompetitionID)
}

// IsSolved returns true if exercise is solved in this competition.
func (s ArenaState) IsSolved(exerciseID string) bool {
	for _, solve := range CompetitionSolves(s.Solves, s.CompetitionID) {
		if SameID(solve.ExerciseID, exerciseID) {
			return true
		}
	}
	return false
}

// SolvedCount returns amount of solved exercises of competition.
func (s ArenaState) SolvedCount() int {
	count := 0
	for _, exercise := range s.Exercises {
		if s.IsSolved(exercise.ID) {
			count++
		}
	}
	return count
}

// Arena represents competition page with challenge cards.
type Arena struct {
	core          *Core
	competitionID string
	state         *Resource[ArenaState]
	mutex         sync.Mutex
	cards         map[string]*ChallengeCard
}

func NewArena(core *Core, competitionID string) *Arena {
	return &Arena{
		core:          core,
		competitionID: competitionID,
		state:         NewResource(core, "arena", loadArenaState(core.Client, competitionID)),
		cards:         map[string]*ChallengeCard{},
	}
}

func loadArenaState(client *api.Client, competitionID string) Loader[ArenaState] {
	return func(ctx context.Context) (ArenaState, error) {
		state := ArenaState{CompetitionID: competitionID}
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			competition, err := client.ObserveCompetition(ctx, competitionID)
			state.Competition = competition
			return err
		})
		g.Go(func() error {
			exercises, err := client.ObserveCompetitionExercises(ctx, competitionID)
			state.Exercises = exercises
			return err
		})
		g.Go(func() error {
			solves, err := client.ObserveMySolves(ctx)
			state.Solves = solves
			return err
		})
		if err := g.Wait(); err != nil {
			return ArenaState{}, err
		}
		return state, nil
	}
}

func (a *Arena) Load(ctx context.Context) error {
	return a.state.Reload(ctx)
}

func (a *Arena) Close() {
	a.state.Close()
}

func (a *Arena) State() ArenaState {
	return a.state.Value()
}

// Cards returns challenge cards in order of exercises.
//
// Cards keep typed flags between reloads.
func (a *Arena) Cards() []*ChallengeCard {
	state := a.State()
	a.mutex.Lock()
	defer a.mutex.Unlock()
	cards := make([]*ChallengeCard, 0, len(state.Exercises))
	for _, exercise := range state.Exercises {
		id := NormalizeID(exercise.ID)
		card, ok := a.cards[id]
		if !ok {
			card = &ChallengeCard{arena: a, exerciseID: exercise.ID}
			a.cards[id] = card
		}
		cards = append(cards, card)
	}
	return cards
}

// Card returns challenge card of exercise.
func (a *Arena) Card(exerciseID string) (*ChallengeCard, bool) {
	for _, card := range a.Cards() {
		if SameID(card.exerciseID, exerciseID) {
			return card, true
		}
	}
	return nil, false
}

// ChallengeCard represents flag submission widget of exercise.
type ChallengeCard struct {
	arena      *Arena
	exerciseID string
	mutex      sync.Mutex
	input      string
	message    string
}

// Exercise returns exercise of card from last loaded state.
func (c *ChallengeCard) Exercise() api.Exercise {
	for _, exercise := range c.arena.State().Exercises {
		if SameID(exercise.ID, c.exerciseID) {
			return exercise
		}
	}
	return api.Exercise{ID: c.exerciseID}
}

// Solved returns true if exercise is solved in arena competition.
func (c *ChallengeCard) Solved() bool {
	return c.arena.State().IsSolved(c.exerciseID)
}

func (c *ChallengeCard) SetInput(input string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.input = input
}

func (c *ChallengeCard) Input() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.input
}

// Message returns inline error message of last submission.
func (c *ChallengeCard) Message() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.message
}

func (c *ChallengeCard) setResult(message string, clearInput bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.message = message
	if clearInput {
		c.input = ""
	}
}

// FlagRejectedError represents submission that was not accepted.
type FlagRejectedError struct {
	Message string
}

func (e *FlagRejectedError) Error() string {
	return e.Message
}

// Submit sends typed flag.
//
// Empty input is ignored. Accepted flag clears input, otherwise input
// is kept and inline message is shown. Arena is reloaded after every
// submission.
func (c *ChallengeCard) Submit(ctx context.Context) (api.SubmitResult, error) {
	input := c.Input()
	if len(input) == 0 {
		return api.SubmitResult{}, nil
	}
	var result api.SubmitResult
	err := c.arena.state.Mutate(ctx, "Unable to submit flag", func(ctx context.Context) (string, error) {
		var err error
		result, err = c.arena.core.Client.SubmitFlag(ctx, api.SubmitFlagForm{
			ExerciseID:    c.exerciseID,
			CompetitionID: c.arena.competitionID,
			Content:       input,
		})
		if err != nil {
			c.setResult(ErrorMessage(err, "Unable to submit flag"), false)
			return "", err
		}
		if !result.Success {
			message := result.Message
			if len(message) == 0 {
				message = "Wrong flag"
			}
			c.setResult(message, false)
			return "", &FlagRejectedError{Message: message}
		}
		c.setResult("", true)
		return fmt.Sprintf("Correct flag! +%d points", result.PointsAwarded), nil
	})
	var rejected *FlagRejectedError
	if errors.As(err, &rejected) {
		return result, nil
	}
	return result, err
}
