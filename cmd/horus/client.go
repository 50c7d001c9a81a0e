package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/horusctf/horus/internal/api"
	"github.com/horusctf/horus/internal/config"
	"github.com/horusctf/horus/internal/managers"
	"github.com/horusctf/horus/internal/pkg/logs"
	"github.com/horusctf/horus/internal/session"
)

var errNotLoggedIn = errors.New("not logged in, configure session or credentials and run 'horus login'")

type clientContext struct {
	Cmd     *cobra.Command
	Args    []string
	Config  config.Config
	Client  *api.Client
	Session *session.Store
	Core    *managers.Core
	Logger  *logs.Logger
	// Routes contains routes requested by session store.
	Routes []string
}

func (c *clientContext) Context() context.Context {
	if ctx := c.Cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (c *clientContext) Out() io.Writer {
	return c.Cmd.OutOrStdout()
}

func (c *clientContext) navigate(route string) {
	c.Logger.Debug("Navigate", logs.Any("route", route))
	c.Routes = append(c.Routes, route)
}

func newClientContext(cmd *cobra.Command, args []string) (*clientContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := clientContext{
		Cmd:    cmd,
		Args:   args,
		Config: cfg,
		Logger: logs.NewLogger(cmd.ErrOrStderr(), log.Lvl(cfg.LogLevel)),
	}
	options := []api.ClientOption{
		api.WithLogger(ctx.Logger.With(logs.Any("component", "api"))),
		api.WithTimeout(time.Duration(cfg.API.Timeout)),
	}
	if cfg.API.Session != nil {
		value, err := cfg.API.Session.GetValue()
		if err != nil {
			return nil, fmt.Errorf("unable to read session: %w", err)
		}
		if len(value) > 0 {
			options = append(options, api.WithSessionCookie(value))
		}
	}
	ctx.Client = api.NewClient(cfg.API.URL, options...)
	ctx.Session = session.NewStore(
		ctx.Client,
		session.WithNavigator(ctx.navigate),
		session.WithLogger(ctx.Logger.With(logs.Any("component", "session"))),
	)
	ctx.Core = &managers.Core{
		Client:   ctx.Client,
		Session:  ctx.Session,
		Notifier: newColorNotifier(cmd.OutOrStdout()),
		Logger:   ctx.Logger.With(logs.Any("component", "managers")),
	}
	return &ctx, nil
}

// authenticate resolves session with identity check.
//
// Configured credentials are used when session is missing or expired.
func (c *clientContext) authenticate() error {
	if err := c.Session.Init(c.Context()); err == nil {
		return nil
	}
	if c.Config.Credentials == nil {
		return errNotLoggedIn
	}
	password, err := c.Config.Credentials.Password.GetValue()
	if err != nil {
		return fmt.Errorf("unable to read password: %w", err)
	}
	if err := c.Session.Login(c.Context(), c.Config.Credentials.Email, password); err != nil {
		return err
	}
	return nil
}

func wrapClientMain(fn func(*clientContext) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, err := newClientContext(cmd, args)
		if err != nil {
			return err
		}
		return fn(ctx)
	}
}

// wrapSessionMain runs command for authenticated user.
func wrapSessionMain(fn func(*clientContext) error) func(*cobra.Command, []string) error {
	return wrapClientMain(func(ctx *clientContext) error {
		if err := ctx.authenticate(); err != nil {
			return err
		}
		return fn(ctx)
	})
}

// wrapAdminMain runs command for admin.
//
// Other users are silently redirected to dashboard.
func wrapAdminMain(fn func(*clientContext) error) func(*cobra.Command, []string) error {
	return wrapSessionMain(func(ctx *clientContext) error {
		switch ctx.Session.RequireAdmin() {
		case session.GuardAllow:
			return fn(ctx)
		case session.GuardRedirect:
			ctx.navigate(session.DashboardRoute)
			return dashboardMain(ctx)
		default:
			return nil
		}
	})
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// readPassword reads password without echo when stdin is terminal.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	defer cmd.Println()
	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		password, err := term.ReadPassword(int(file.Fd()))
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	return readLine(cmd.InOrStdin())
}

// readLine reads single line without buffering input ahead.
func readLine(input io.Reader) (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := input.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(line.String(), "\r"), nil
}
