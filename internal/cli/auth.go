package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/greenbox/pkg/auth"
	"github.com/sdejongh/greenbox/pkg/manager"
	"github.com/sdejongh/greenbox/pkg/output"
	"github.com/sdejongh/greenbox/pkg/session"
	"github.com/spf13/cobra"
)

func newRegisterCommand(flags *GlobalFlags) *cobra.Command {
	var fields auth.RegisterFields

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long: `Create an account on the backend. Missing fields are prompted for;
the password is always prompted and never echoed.`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVarP(&fields.Username, "username", "u", "", "account name")
	cmd.Flags().StringVar(&fields.Nickname, "nickname", "", "display name")
	cmd.Flags().StringVar(&fields.Email, "email", "", "email address")
	cmd.Flags().StringVar(&fields.Phone, "phone", "", "mobile phone number")

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		for _, q := range []struct {
			value  *string
			prompt string
		}{
			{&fields.Username, "Username: "},
			{&fields.Nickname, "Nickname: "},
			{&fields.Email, "Email: "},
			{&fields.Phone, "Phone: "},
		} {
			if *q.value != "" {
				continue
			}
			answer, err := app.prompter.Line(q.prompt)
			if err != nil {
				return err
			}
			*q.value = answer
		}

		pwd, err := app.prompter.Password("Password: ")
		if err != nil {
			return err
		}
		again, err := app.prompter.Password("Repeat password: ")
		if err != nil {
			return err
		}
		if pwd != again {
			return errors.New("passwords do not match")
		}
		fields.Password = pwd

		sess, err := app.auth.Register(ctx, fields)
		if err != nil {
			return err
		}
		if err := app.login(sess); err != nil {
			return err
		}
		app.notify(manager.LevelSuccess, fmt.Sprintf("registered and logged in as %s", sess.Username))
		return nil
	})

	return cmd
}

func newLoginCommand(flags *GlobalFlags) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (prompted when omitted)")

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		if username == "" {
			answer, err := app.prompter.Line("Username: ")
			if err != nil {
				return err
			}
			username = answer
		}
		pwd, err := app.prompter.Password("Password: ")
		if err != nil {
			return err
		}

		sess, err := app.auth.Login(ctx, username, pwd)
		if err != nil {
			return err
		}
		if err := app.login(sess); err != nil {
			return err
		}
		app.notify(manager.LevelSuccess, fmt.Sprintf("logged in as %s", sess.Username))
		return nil
	})

	return cmd
}

// login stores the session and saves it for the next invocation
func (a *App) login(sess *session.Session) error {
	stored := a.sessions.Login(*sess)
	if err := a.saveSession(stored); err != nil {
		return fmt.Errorf("logged in, but the session could not be saved: %w", err)
	}
	return nil
}

func newLogoutCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			app.sessions.Logout()
			if err := session.Remove(app.sessionPath); err != nil {
				return err
			}
			app.notify(manager.LevelSuccess, "logged out")
			return nil
		}),
	}
}

func newWhoamiCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			if app.saved == nil {
				return errors.New("not logged in")
			}

			info := output.SessionInfo{
				Username: app.saved.Username,
				Nickname: app.saved.Nickname,
				ID:       app.saved.ID,
				Server:   app.saved.Server,
				SavedAt:  app.saved.SavedAt,
			}
			if exp, ok := session.TokenExpiry(app.saved.Token); ok {
				info.Expires = exp
				info.Expired = !timeNow().Before(exp)
			}
			return app.formatter.Session(app.out, info)
		}),
	}
}
