package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/horusctf/horus/internal/managers"
)

func addAuthCommands(rootCmd *cobra.Command) {
	loginCmd := cobra.Command{
		Use:   "login",
		Short: "Logs in and prints session value",
		RunE:  wrapClientMain(loginMain),
	}
	loginCmd.Flags().String("email", "", "Account email")
	rootCmd.AddCommand(&loginCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Terminates current session",
		RunE:  wrapClientMain(logoutMain),
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Prints current user",
		RunE:  wrapSessionMain(whoamiMain),
	})
	registerCmd := cobra.Command{
		Use:   "register",
		Short: "Creates new account",
		RunE:  wrapClientMain(registerMain),
	}
	registerCmd.Flags().String("name", "", "First name")
	registerCmd.Flags().String("surname", "", "Last name")
	registerCmd.Flags().String("username", "", "Username")
	registerCmd.Flags().String("email", "", "Email")
	rootCmd.AddCommand(&registerCmd)
	profileCmd := cobra.Command{
		Use:   "profile",
		Short: "Shows or updates profile of current user",
		RunE:  wrapSessionMain(profileMain),
	}
	profileCmd.Flags().String("name", "", "New first name")
	profileCmd.Flags().String("surname", "", "New last name")
	profileCmd.Flags().String("username", "", "New username")
	profileCmd.Flags().String("email", "", "New email")
	profileCmd.Flags().Bool("change-password", false, "Prompt for new password")
	rootCmd.AddCommand(&profileCmd)
}

func loginMain(ctx *clientContext) error {
	email := must(ctx.Cmd.Flags().GetString("email"))
	var password string
	if len(email) == 0 && ctx.Config.Credentials != nil {
		email = ctx.Config.Credentials.Email
		value, err := ctx.Config.Credentials.Password.GetValue()
		if err != nil {
			return fmt.Errorf("unable to read password: %w", err)
		}
		password = value
	} else {
		if len(email) == 0 {
			return fmt.Errorf("email is not specified")
		}
		value, err := readPassword(ctx.Cmd, "Password: ")
		if err != nil {
			return err
		}
		password = value
	}
	if err := ctx.Session.Login(ctx.Context(), email, password); err != nil {
		return err
	}
	user, _ := ctx.Session.User()
	successColor.Fprint(ctx.Out(), "✓ ")
	fmt.Fprintf(ctx.Out(), "Logged in as %s\n", user.Username)
	if session := ctx.Client.SessionCookie(); len(session) > 0 {
		fmt.Fprintln(ctx.Out(), "Session:", session)
	}
	return nil
}

func logoutMain(ctx *clientContext) error {
	ctx.Session.Logout(ctx.Context())
	successColor.Fprint(ctx.Out(), "✓ ")
	fmt.Fprintln(ctx.Out(), "Logged out")
	return nil
}

func whoamiMain(ctx *clientContext) error {
	user, ok := ctx.Session.User()
	if !ok {
		return errNotLoggedIn
	}
	w := newTable(ctx.Out())
	fmt.Fprintf(w, "ID\t%s\n", user.ID)
	fmt.Fprintf(w, "Name\t%s\n", displayName(user))
	fmt.Fprintf(w, "Username\t%s\n", user.Username)
	fmt.Fprintf(w, "Email\t%s\n", user.Email)
	fmt.Fprintf(w, "Admin\t%s\n", formatBool(user.IsAdmin))
	return w.Flush()
}

func registerMain(ctx *clientContext) error {
	flags := ctx.Cmd.Flags()
	form := managers.RegisterForm{
		Name:     must(flags.GetString("name")),
		Surname:  must(flags.GetString("surname")),
		Username: must(flags.GetString("username")),
		Email:    must(flags.GetString("email")),
	}
	var err error
	if form.Password, err = readPassword(ctx.Cmd, "Password: "); err != nil {
		return err
	}
	if form.ConfirmPassword, err = readPassword(ctx.Cmd, "Confirm password: "); err != nil {
		return err
	}
	return reported(managers.Register(ctx.Context(), ctx.Core, form))
}

func profileMain(ctx *clientContext) error {
	page := managers.NewProfilePage(ctx.Core)
	form := page.Form()
	flags := ctx.Cmd.Flags()
	changed := false
	for name, field := range map[string]*string{
		"name":     &form.Name,
		"surname":  &form.Surname,
		"username": &form.Username,
		"email":    &form.Email,
	} {
		if flags.Changed(name) {
			*field = must(flags.GetString(name))
			changed = true
		}
	}
	if must(flags.GetBool("change-password")) {
		var err error
		if form.Password, err = readPassword(ctx.Cmd, "New password: "); err != nil {
			return err
		}
		if form.ConfirmPassword, err = readPassword(ctx.Cmd, "Confirm password: "); err != nil {
			return err
		}
		changed = true
	}
	if changed {
		page.SetForm(form)
		if _, err := page.Submit(ctx.Context()); err != nil {
			return reported(err)
		}
	}
	return whoamiMain(ctx)
}
