package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/klwxsrx/go-app-shell/internal/appshell"
)

// shell is built once per invocation, after flags are parsed.
type shell struct {
	envFiles  []string
	container *appshell.Container
}

func main() {
	sh := &shell{}

	rootCmd := &cobra.Command{
		Use:   "appshell",
		Short: "Authenticated session and API client for the app backend",
		Long: `appshell keeps an authenticated session against the app backend.

The session is persisted between invocations, so "login" once and then
send requests with "request". Expired tokens are refreshed on demand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config, err := appshell.LoadConfig(sh.envFiles...)
			if err != nil {
				return err
			}

			sh.container = appshell.NewContainer(cmd.Context(), config)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&sh.envFiles, "env-file", nil, "env files to load instead of .env")

	rootCmd.AddCommand(
		loginCmd(sh),
		logoutCmd(sh),
		statusCmd(sh),
		refreshCmd(sh),
		requestCmd(sh),
		serveCmd(sh),
	)

	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	if sh.container != nil {
		sh.container.Close(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
