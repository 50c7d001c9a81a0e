package main

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/managers"
)

// DefaultWatchSchedule is schedule of containers watch.
const DefaultWatchSchedule = "@every 10s"

func newAdminCmd() *cobra.Command {
	adminCmd := cobra.Command{
		Use:   "admin",
		Short: "Platform administration",
		RunE:  wrapAdminMain(adminOverviewMain),
	}
	adminCmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Shows platform totals",
		RunE:  wrapAdminMain(adminOverviewMain),
	})
	adminCmd.AddCommand(newAdminCompetitionsCmd())
	adminCmd.AddCommand(newAdminExercisesCmd())
	adminCmd.AddCommand(newAdminTagsCmd())
	adminCmd.AddCommand(newAdminContainersCmd())
	adminCmd.AddCommand(newAdminUsersCmd())
	return &adminCmd
}

func adminOverviewMain(ctx *clientContext) error {
	overview := managers.NewAdminOverview(ctx.Core)
	defer overview.Close()
	if err := overview.Load(ctx.Context()); err != nil {
		return err
	}
	counts := overview.Counts()
	w := newTable(ctx.Out())
	fmt.Fprintf(w, "Competitions\t%d\n", counts.Competitions)
	fmt.Fprintf(w, "Exercises\t%d\n", counts.Exercises)
	fmt.Fprintf(w, "Users\t%d\n", counts.Users)
	fmt.Fprintf(w, "Containers\t%d (%d active)\n", counts.Containers, counts.ActiveContainers)
	return w.Flush()
}

func newAdminCompetitionsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "competitions",
		Short: "Manages competitions",
		RunE:  wrapAdminMain(adminCompetitionsListMain),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists all competitions",
		RunE:  wrapAdminMain(adminCompetitionsListMain),
	})
	createCmd := cobra.Command{
		Use:   "create",
		Short: "Creates competition",
		RunE:  wrapAdminMain(adminCompetitionsSaveMain),
	}
	addCompetitionFlags(createCmd.Flags())
	createCmd.Flags().String("invite-code", "", "Invite code")
	cmd.AddCommand(&createCmd)
	updateCmd := cobra.Command{
		Use:   "update <id>",
		Short: "Updates competition",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminCompetitionsSaveMain),
	}
	addCompetitionFlags(updateCmd.Flags())
	cmd.AddCommand(&updateCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Deletes competition",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminCompetitionsDeleteMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "exercises <id>",
		Short: "Lists exercises of competition",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminCompetitionExercisesMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unlink <id> <exercise>",
		Short: "Removes exercise from competition",
		Args:  cobra.ExactArgs(2),
		RunE:  wrapAdminMain(adminCompetitionUnlinkMain),
	})
	return &cmd
}

func addCompetitionFlags(flags *pflag.FlagSet) {
	flags.String("name", "", "Name of competition")
	flags.String("start", "", "Start date (RFC 3339 or YYYY-MM-DDTHH:MM)")
	flags.String("end", "", "End date (RFC 3339 or YYYY-MM-DDTHH:MM)")
	flags.String("status", api.StatusUpcoming, "Status: ativa, em_breve or finalizada")
}

func adminCompetitionsListMain(ctx *clientContext) error {
	page := managers.NewAdminCompetitions(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	w := newTable(ctx.Out(), "ID", "NAME", "STATUS", "START", "END", "INVITE CODE")
	for _, c := range page.Competitions() {
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Status, formatTime(c.StartDate), formatTime(c.EndDate), c.InviteCode,
		)
	}
	return w.Flush()
}

func adminCompetitionsSaveMain(ctx *clientContext) error {
	page := managers.NewAdminCompetitions(ctx.Core)
	defer page.Close()
	var form managers.CompetitionForm
	if len(ctx.Args) > 0 {
		if err := page.Load(ctx.Context()); err != nil {
			return err
		}
		competition, ok := findCompetition(page.Competitions(), ctx.Args[0])
		if !ok {
			return fmt.Errorf("competition %q not found", ctx.Args[0])
		}
		form = managers.CompetitionFormFrom(competition)
	}
	flags := ctx.Cmd.Flags()
	if flags.Changed("name") || !form.Editing() {
		form.Name = must(flags.GetString("name"))
	}
	if flags.Changed("status") || !form.Editing() {
		form.Status = must(flags.GetString("status"))
	}
	if flags.Changed("invite-code") {
		form.InviteCode = must(flags.GetString("invite-code"))
	}
	for name, field := range map[string]*api.Time{
		"start": &form.StartDate,
		"end":   &form.EndDate,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := api.ParseTime(must(flags.GetString(name)))
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*field = value
	}
	return reported(page.Save(ctx.Context(), form))
}

func findCompetition(competitions []api.Competition, id string) (api.Competition, bool) {
	for _, competition := range competitions {
		if managers.SameID(competition.ID, id) {
			return competition, true
		}
	}
	return api.Competition{}, false
}

func adminCompetitionsDeleteMain(ctx *clientContext) error {
	page := managers.NewAdminCompetitions(ctx.Core)
	defer page.Close()
	return reported(page.Delete(ctx.Context(), ctx.Args[0]))
}

func adminCompetitionExercisesMain(ctx *clientContext) error {
	modal := managers.NewCompetitionExercises(ctx.Core, ctx.Args[0])
	defer modal.Close()
	if err := modal.Load(ctx.Context()); err != nil {
		return err
	}
	return printExercises(ctx.Out(), modal.Exercises())
}

func adminCompetitionUnlinkMain(ctx *clientContext) error {
	modal := managers.NewCompetitionExercises(ctx.Core, ctx.Args[0])
	defer modal.Close()
	return reported(modal.Unlink(ctx.Context(), ctx.Args[1]))
}

func newAdminExercisesCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "exercises",
		Short: "Manages exercises",
		RunE:  wrapAdminMain(adminExercisesListMain),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists all exercises",
		RunE:  wrapAdminMain(adminExercisesListMain),
	})
	createCmd := cobra.Command{
		Use:   "create",
		Short: "Creates exercise",
		RunE:  wrapAdminMain(adminExercisesSaveMain),
	}
	addExerciseFlags(createCmd.Flags())
	createCmd.Flags().StringSlice("tag", nil, "Tag id, may be repeated")
	createCmd.Flags().Bool("continue-on-error", false, "Link remaining tags after failure")
	cmd.AddCommand(&createCmd)
	updateCmd := cobra.Command{
		Use:   "update <id>",
		Short: "Updates exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminExercisesSaveMain),
	}
	addExerciseFlags(updateCmd.Flags())
	cmd.AddCommand(&updateCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Deletes exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminExercisesDeleteMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tag <id> <tag>",
		Short: "Adds tag to exercise or removes it",
		Args:  cobra.ExactArgs(2),
		RunE:  wrapAdminMain(adminExercisesTagMain),
	})
	deployCmd := cobra.Command{
		Use:   "deploy <id>",
		Short: "Starts container of exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminExercisesDeployMain),
	}
	deployCmd.Flags().Int("ttl", 0, "Container time to live in minutes, 0 means unlimited")
	cmd.AddCommand(&deployCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "competitions <id>",
		Short: "Lists competitions with link state of exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminExerciseCompetitionsMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "link <id> <competition>",
		Short: "Links exercise with competition or unlinks it",
		Args:  cobra.ExactArgs(2),
		RunE:  wrapAdminMain(adminExerciseLinkMain),
	})
	return &cmd
}

func addExerciseFlags(flags *pflag.FlagSet) {
	flags.String("name", "", "Name of exercise")
	flags.String("description", "", "Description of exercise")
	flags.String("difficulty", api.DifficultyEasy, "Difficulty: facil, medio or dificil")
	flags.Int("points", 0, "Points for solution")
	flags.String("flag", "", "Flag of exercise")
	flags.Bool("active", true, "Exercise is visible for students")
	flags.String("docker-image", "", "Docker image of exercise")
}

func adminExercisesListMain(ctx *clientContext) error {
	page := managers.NewAdminExercises(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	catalog := page.Catalog()
	if err := printExercises(ctx.Out(), catalog.Exercises); err != nil {
		return err
	}
	headerColor.Fprintln(ctx.Out(), "Tags")
	w := newTable(ctx.Out())
	for _, tag := range catalog.Tags {
		fmt.Fprintf(w, "%s\t%s\n", tag.ID, tag.Name)
	}
	return w.Flush()
}

func adminExercisesSaveMain(ctx *clientContext) error {
	flags := ctx.Cmd.Flags()
	var options []managers.BatchOption
	if flags.Lookup("continue-on-error") != nil && must(flags.GetBool("continue-on-error")) {
		options = append(options, managers.ContinueOnError())
	}
	page := managers.NewAdminExercises(ctx.Core, options...)
	defer page.Close()
	var form managers.ExerciseForm
	if len(ctx.Args) > 0 {
		if err := page.Load(ctx.Context()); err != nil {
			return err
		}
		exercise, ok := page.Catalog().Exercise(ctx.Args[0])
		if !ok {
			return fmt.Errorf("exercise %q not found", ctx.Args[0])
		}
		form = managers.ExerciseFormFrom(exercise)
	}
	for name, field := range map[string]*string{
		"name":         &form.Name,
		"description":  &form.Description,
		"difficulty":   &form.Difficulty,
		"flag":         &form.Flag,
		"docker-image": &form.DockerImage,
	} {
		if flags.Changed(name) || !form.Editing() {
			*field = must(flags.GetString(name))
		}
	}
	if flags.Changed("points") || !form.Editing() {
		form.Points = must(flags.GetInt("points"))
	}
	if flags.Changed("active") || !form.Editing() {
		form.IsActive = must(flags.GetBool("active"))
	}
	if flags.Lookup("tag") != nil {
		form.TagIDs = must(flags.GetStringSlice("tag"))
	}
	results, err := page.Save(ctx.Context(), form)
	printBatchResults(ctx, results)
	return reported(err)
}

func printBatchResults(ctx *clientContext, results managers.BatchResults) {
	for _, result := range results {
		switch result.Status {
		case managers.BatchSucceeded:
			successColor.Fprint(ctx.Out(), "  ✓ ")
			fmt.Fprintln(ctx.Out(), result.ID)
		case managers.BatchFailed:
			failureColor.Fprint(ctx.Out(), "  ✗ ")
			fmt.Fprintf(ctx.Out(), "%s: %s\n", result.ID, api.Detail(result.Err, "failed"))
		default:
			mutedColor.Fprintf(ctx.Out(), "  - %s: %s\n", result.ID, result.Status)
		}
	}
}

func adminExercisesDeleteMain(ctx *clientContext) error {
	page := managers.NewAdminExercises(ctx.Core)
	defer page.Close()
	return reported(page.Delete(ctx.Context(), ctx.Args[0]))
}

func adminExercisesTagMain(ctx *clientContext) error {
	page := managers.NewAdminExercises(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	return reported(page.ToggleTag(ctx.Context(), ctx.Args[0], ctx.Args[1]))
}

func adminExercisesDeployMain(ctx *clientContext) error {
	page := managers.NewAdminExercises(ctx.Core)
	defer page.Close()
	result, err := page.Deploy(ctx.Context(), ctx.Args[0], must(ctx.Cmd.Flags().GetInt("ttl")))
	if err != nil {
		return reported(err)
	}
	if len(result.ContainerID) > 0 {
		fmt.Fprintln(ctx.Out(), "Container:", result.ContainerID)
	}
	return nil
}

func adminExerciseCompetitionsMain(ctx *clientContext) error {
	modal := managers.NewCompetitionLinksModal(ctx.Core, ctx.Args[0])
	defer modal.Close()
	if err := modal.Load(ctx.Context()); err != nil {
		return err
	}
	links := modal.Links()
	w := newTable(ctx.Out(), "ID", "NAME", "STATUS", "LINKED")
	for _, c := range links.All {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Status, formatBool(links.IsLinked(c.ID)))
	}
	return w.Flush()
}

func adminExerciseLinkMain(ctx *clientContext) error {
	modal := managers.NewCompetitionLinksModal(ctx.Core, ctx.Args[0])
	defer modal.Close()
	if err := modal.Load(ctx.Context()); err != nil {
		return err
	}
	return reported(modal.Toggle(ctx.Context(), ctx.Args[1]))
}

func newAdminTagsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "tags",
		Short: "Manages tags",
		RunE:  wrapAdminMain(adminTagsListMain),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists all tags",
		RunE:  wrapAdminMain(adminTagsListMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Creates tag",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminTagsCreateMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Renames tag",
		Args:  cobra.ExactArgs(2),
		RunE:  wrapAdminMain(adminTagsRenameMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Deletes tag",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminTagsDeleteMain),
	})
	return &cmd
}

func adminTagsListMain(ctx *clientContext) error {
	manager := managers.NewTagManager(ctx.Core)
	defer manager.Close()
	if err := manager.Load(ctx.Context()); err != nil {
		return err
	}
	w := newTable(ctx.Out(), "ID", "NAME")
	for _, tag := range manager.Tags() {
		fmt.Fprintf(w, "%s\t%s\n", tag.ID, tag.Name)
	}
	return w.Flush()
}

func adminTagsCreateMain(ctx *clientContext) error {
	manager := managers.NewTagManager(ctx.Core)
	defer manager.Close()
	return reported(manager.Save(ctx.Context(), "", ctx.Args[0]))
}

func adminTagsRenameMain(ctx *clientContext) error {
	manager := managers.NewTagManager(ctx.Core)
	defer manager.Close()
	return reported(manager.Save(ctx.Context(), ctx.Args[0], ctx.Args[1]))
}

func adminTagsDeleteMain(ctx *clientContext) error {
	manager := managers.NewTagManager(ctx.Core)
	defer manager.Close()
	return reported(manager.Delete(ctx.Context(), ctx.Args[0]))
}

func newAdminContainersCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "containers",
		Short: "Manages running containers",
		RunE:  wrapAdminMain(adminContainersListMain),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists containers",
		RunE:  wrapAdminMain(adminContainersListMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "kill <id>",
		Short: "Removes container",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminContainersKillMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Removes records of missing containers",
		RunE:  wrapAdminMain(adminContainersSyncMain),
	})
	panicCmd := cobra.Command{
		Use:   "panic",
		Short: "Removes all containers",
		RunE:  wrapAdminMain(adminContainersPanicMain),
	}
	panicCmd.Flags().Bool("yes", false, "Confirm removal of all containers")
	panicCmd.Flags().Bool("continue-on-error", false, "Remove remaining containers after failure")
	cmd.AddCommand(&panicCmd)
	watchCmd := cobra.Command{
		Use:   "watch",
		Short: "Periodically prints container inventory",
		RunE:  wrapAdminMain(adminContainersWatchMain),
	}
	watchCmd.Flags().String("schedule", DefaultWatchSchedule, "Cron schedule of refresh")
	cmd.AddCommand(&watchCmd)
	return &cmd
}

func printContainers(ctx *clientContext, page *managers.ContainersPage) error {
	fmt.Fprintf(ctx.Out(), "Total: %d  Active: %d\n", page.Total(), page.Active())
	w := newTable(ctx.Out(), "ID", "EXERCISE", "CONNECTION", "ACTIVE", "IMAGE")
	for _, c := range page.Containers() {
		image := c.ImageTag
		if len(image) == 0 {
			image = "-"
		}
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.ExerciseID, c.Connection, formatBool(c.IsActive), image,
		)
	}
	return w.Flush()
}

func adminContainersListMain(ctx *clientContext) error {
	page := managers.NewContainersPage(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	return printContainers(ctx, page)
}

func adminContainersKillMain(ctx *clientContext) error {
	page := managers.NewContainersPage(ctx.Core)
	defer page.Close()
	return reported(page.Kill(ctx.Context(), ctx.Args[0]))
}

func adminContainersSyncMain(ctx *clientContext) error {
	page := managers.NewContainersPage(ctx.Core)
	defer page.Close()
	if _, err := page.Sync(ctx.Context()); err != nil {
		return reported(err)
	}
	return printContainers(ctx, page)
}

func adminContainersPanicMain(ctx *clientContext) error {
	flags := ctx.Cmd.Flags()
	if !must(flags.GetBool("yes")) {
		return fmt.Errorf("refusing to remove all containers without --yes")
	}
	var options []managers.BatchOption
	if must(flags.GetBool("continue-on-error")) {
		options = append(options, managers.ContinueOnError())
	}
	page := managers.NewContainersPage(ctx.Core, options...)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	results, err := page.Panic(ctx.Context())
	printBatchResults(ctx, results)
	return reported(err)
}

func adminContainersWatchMain(ctx *clientContext) error {
	page := managers.NewContainersPage(ctx.Core)
	defer page.Close()
	refresh := func() {
		if err := page.Load(ctx.Context()); err != nil {
			failureColor.Fprint(ctx.Out(), "✗ ")
			fmt.Fprintln(ctx.Out(), api.Detail(err, "Unable to load containers"))
			return
		}
		fmt.Fprintln(ctx.Out(), strings.Repeat("-", 40))
		if err := printContainers(ctx, page); err != nil {
			ctx.Logger.Warn("Unable to print containers", err)
		}
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(must(ctx.Cmd.Flags().GetString("schedule")), refresh); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	refresh()
	c.Start()
	<-ctx.Context().Done()
	<-c.Stop().Done()
	return nil
}

func newAdminUsersCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "users",
		Short: "Manages users",
		RunE:  wrapAdminMain(adminUsersListMain),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lists all users",
		RunE:  wrapAdminMain(adminUsersListMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle-admin <id>",
		Short: "Grants or revokes admin privileges",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminUsersToggleMain),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Deletes user",
		Args:  cobra.ExactArgs(1),
		RunE:  wrapAdminMain(adminUsersDeleteMain),
	})
	return &cmd
}

func adminUsersListMain(ctx *clientContext) error {
	page := managers.NewAdminUsers(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	w := newTable(ctx.Out(), "ID", "USERNAME", "NAME", "EMAIL", "ADMIN")
	for _, user := range page.Users() {
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%s\t%s\n",
			user.ID, user.Username, displayName(user), user.Email, formatBool(user.IsAdmin),
		)
	}
	return w.Flush()
}

func adminUsersToggleMain(ctx *clientContext) error {
	page := managers.NewAdminUsers(ctx.Core)
	defer page.Close()
	if err := page.Load(ctx.Context()); err != nil {
		return err
	}
	return reported(page.ToggleAdmin(ctx.Context(), ctx.Args[0]))
}

func adminUsersDeleteMain(ctx *clientContext) error {
	page := managers.NewAdminUsers(ctx.Core)
	defer page.Close()
	return reported(page.Delete(ctx.Context(), ctx.Args[0]))
}
