package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/carvault/internal/client/config"
)

// newApp is swapped in tests.
var newApp = NewApp

// NewRootCommand builds the carvault command tree. Without a subcommand it
// starts the REPL.
func NewRootCommand() *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:           "carvault",
		Short:         "Edit car records and upload their assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), config.OSEnv)
			if err != nil {
				return err
			}
			app, err = newApp(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Root(cmd.Context())
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	simple := func(use, short string, run func(a *App, ctx context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:          use,
			Short:        short,
			Args:         cobra.NoArgs,
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(app, cmd.Context())
			},
		}
	}

	root.AddCommand(
		simple("login", "Log in and store the delegation", (*App).Login),
		simple("logout", "Forget the stored delegation", (*App).Logout),
		simple("register", "Create an account at the identity provider", (*App).Register),
		simple("whoami", "Print the current principal", (*App).WhoAmI),
		&cobra.Command{
			Use:          "upload <logo|images|documents> <path>...",
			Short:        "Upload files into a record field and print their keys",
			Args:         cobra.MinimumNArgs(2),
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Upload(cmd.Context(), args)
			},
		},
	)

	return root
}
