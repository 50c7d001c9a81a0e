package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/horusctf/horus/internal/managers"
)

func addStudentCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Shows personal statistics",
		RunE:  wrapSessionMain(dashboardMain),
	})
	competitionsCmd := cobra.Command{
		Use:     "competitions",
		Aliases: []string{"competition"},
		Short:   "Lists competitions of current user",
		RunE:    wrapSessionMain(competitionsListMain),
	}
	competitionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists competitions of current user",
		RunE:  wrapSessionMain(competitionsListMain),
	})
	competitionsCmd.AddCommand(&cobra.Command{
		Use:   "join <invite-code>",
		Short: "Joins competition with invite code",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapSessionMain(competitionsJoinMain),
	})
	rootCmd.AddCommand(&competitionsCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "arena <competition>",
		Short: "Shows challenges of competition",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapSessionMain(arenaMain),
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "submit <competition> <exercise> <flag>",
		Short: "Submits flag of challenge",
		Args:  cobra.ExactArgs(3),
		RunE:  wrapSessionMain(submitMain),
	})
	scoreboardCmd := cobra.Command{
		Use:   "scoreboard [competition]",
		Short: "Shows ranking of competition",
		Args:  cobra.MaximumNArgs(1),
		RunE:  wrapSessionMain(scoreboardMain),
	}
	scoreboardCmd.Flags().Bool("global", false, "Show global ranking")
	rootCmd.AddCommand(&scoreboardCmd)
}

func dashboardMain(ctx *clientContext) error {
	dashboard := managers.NewDashboard(ctx.Core)
	defer dashboard.Close()
	if err := dashboard.Load(ctx.Context()); err != nil {
		return err
	}
	return printDashboard(ctx.Out(), dashboard.Stats())
}

func competitionsListMain(ctx *clientContext) error {
	page := managers.NewCompetitionsPage(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	competitions := page.Competitions()
	if len(competitions) == 0 {
		mutedColor.Fprintln(ctx.Out(), "No competitions, join one with invite code")
		return nil
	}
	return printCompetitions(ctx.Out(), competitions)
}

func competitionsJoinMain(ctx *clientContext) error {
	page := managers.NewCompetitionsPage(ctx.Core)
	defer page.Close()
	if err := page.Join(ctx.Context(), ctx.Args[0]); err != nil {
		return reported(err)
	}
	return printCompetitions(ctx.Out(), page.Competitions())
}

func arenaMain(ctx *clientContext) error {
	arena := managers.NewArena(ctx.Core, ctx.Args[0])
	defer arena.Close()
	if err := arena.Load(ctx.Context()); err != nil {
		return err
	}
	return printArena(ctx, arena)
}

func printArena(ctx *clientContext, arena *managers.Arena) error {
	state := arena.State()
	headerColor.Fprintln(ctx.Out(), state.Competition.Name)
	fmt.Fprintf(
		ctx.Out(), "Score: %d  Solved: %d/%d\n",
		state.Score(), state.SolvedCount(), len(state.Exercises),
	)
	w := newTable(ctx.Out(), "ID", "NAME", "DIFFICULTY", "POINTS", "SOLVED", "CONNECTION")
	for _, card := range arena.Cards() {
		exercise := card.Exercise()
		connection := exercise.Connection
		if len(connection) == 0 {
			connection = "-"
		}
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			exercise.ID, exercise.Name, exercise.Difficulty, exercise.Points,
			formatBool(card.Solved()), connection,
		)
	}
	return w.Flush()
}

func submitMain(ctx *clientContext) error {
	arena := managers.NewArena(ctx.Core, ctx.Args[0])
	defer arena.Close()
	if err := arena.Load(ctx.Context()); err != nil {
		return err
	}
	card, ok := arena.Card(ctx.Args[1])
	if !ok {
		return fmt.Errorf("exercise %q not found in competition", ctx.Args[1])
	}
	if card.Solved() {
		mutedColor.Fprintln(ctx.Out(), "Challenge already solved")
		return nil
	}
	card.SetInput(ctx.Args[2])
	result, err := card.Submit(ctx.Context())
	if err != nil {
		return reported(err)
	}
	if !result.Success {
		return reported(errors.New(card.Message()))
	}
	fmt.Fprintf(ctx.Out(), "Score: %d\n", arena.State().Score())
	return nil
}

func scoreboardMain(ctx *clientContext) error {
	page := managers.NewScoreboardPage(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	switch {
	case must(ctx.Cmd.Flags().GetBool("global")):
		if err := page.SelectGlobal(ctx.Context()); err != nil {
			return reported(err)
		}
	case len(ctx.Args) > 0:
		if err := page.Select(ctx.Context(), ctx.Args[0]); err != nil {
			return reported(err)
		}
	}
	selected := page.Selected()
	if len(selected) == 0 {
		mutedColor.Fprintln(ctx.Out(), "No competitions")
		return nil
	}
	title := "Global ranking"
	for _, competition := range page.Competitions() {
		if managers.SameID(competition.ID, selected) {
			title = competition.Name
		}
	}
	headerColor.Fprintln(ctx.Out(), title)
	user, _ := ctx.Session.User()
	return printScoreboard(ctx.Out(), page.Ranking(), user.ID)
}
