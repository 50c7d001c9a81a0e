package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/managers"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.Faint)
)

// colorNotifier prints toast notifications to output.
type colorNotifier struct {
	output io.Writer
}

func newColorNotifier(output io.Writer) *colorNotifier {
	return &colorNotifier{output: output}
}

func (n *colorNotifier) Notify(notification managers.Notification) {
	switch notification.Kind {
	case managers.SuccessNotification:
		successColor.Fprint(n.output, "✓ ")
	default:
		failureColor.Fprint(n.output, "✗ ")
	}
	fmt.Fprintln(n.output, notification.Message)
}

// reportedError represents error that was already shown to user
// as notification.
type reportedError struct {
	err error
}

func (e reportedError) Error() string {
	return e.err.Error()
}

func (e reportedError) Unwrap() error {
	return e.err
}

// reported marks error as already shown.
func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

func isReported(err error) bool {
	var target reportedError
	return errors.As(err, &target)
}

func newTable(output io.Writer, columns ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	if len(columns) > 0 {
		// Escape sequences would break column alignment.
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	return w
}

func formatTime(t api.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatTags(tags []api.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func formatProgress(ratio float64, width int) string {
	filled := int(ratio*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func printCompetitions(output io.Writer, competitions []api.Competition) error {
	w := newTable(output, "ID", "NAME", "STATUS", "START", "END")
	for _, c := range competitions {
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.Status, formatTime(c.StartDate), formatTime(c.EndDate),
		)
	}
	return w.Flush()
}

func printExercises(output io.Writer, exercises []api.Exercise) error {
	w := newTable(output, "ID", "NAME", "DIFFICULTY", "POINTS", "ACTIVE", "TAGS")
	for _, e := range exercises {
		fmt.Fprintf(
			w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Name, e.Difficulty, e.Points, formatBool(e.IsActive), formatTags(e.Tags),
		)
	}
	return w.Flush()
}

func printScoreboard(output io.Writer, scoreboard api.Scoreboard, userID string) error {
	w := newTable(output, "RANK", "USER", "SCORE")
	for _, entry := range scoreboard {
		marker := ""
		if managers.SameID(entry.UserID, userID) {
			marker = " *"
		}
		fmt.Fprintf(w, "%d\t%s%s\t%d\n", entry.Rank, entry.Username, marker, entry.Score)
	}
	return w.Flush()
}

func printDashboard(output io.Writer, stats managers.DashboardStats) error {
	headerColor.Fprintf(output, "Welcome, %s\n", displayName(stats.User))
	w := newTable(output)
	fmt.Fprintf(w, "Total score\t%d\n", stats.TotalScore)
	fmt.Fprintf(w, "Captured flags\t%d\n", stats.UniqueCaptures)
	fmt.Fprintf(w, "Global rank\t%s\n", stats.Rank)
	fmt.Fprintf(w, "Competitions\t%d\n", stats.EnrolledCompetitions)
	if stats.ActiveCompetition != nil {
		fmt.Fprintf(w, "Active competition\t%s\n", stats.ActiveCompetition.Name)
	}
	fmt.Fprintf(w, "Active today\t%s\n", formatBool(stats.ActiveToday))
	if err := w.Flush(); err != nil {
		return err
	}
	headerColor.Fprintln(output, "Mastery")
	w = newTable(output)
	for _, m := range stats.Mastery {
		fmt.Fprintf(
			w, "%s\t%s\t%d/%d\n",
			m.Difficulty, formatProgress(m.Ratio(), 20), m.Solved, m.Total,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	headerColor.Fprintln(output, "Recent solves")
	if len(stats.RecentSolves) == 0 {
		mutedColor.Fprintln(output, "No solves yet")
		return nil
	}
	w = newTable(output)
	for _, solve := range stats.RecentSolves {
		fmt.Fprintf(
			w, "%s\t%s\t+%d\n",
			formatTime(solve.Timestamp), solve.ExerciseName, solve.PointsAwarded,
		)
	}
	return w.Flush()
}

func displayName(user api.User) string {
	name := strings.TrimSpace(user.Name + " " + user.Surname)
	if len(name) == 0 {
		return user.Username
	}
	return name
}
