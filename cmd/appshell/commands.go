package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/klwxsrx/go-app-shell/internal/appshell"
	"github.com/klwxsrx/go-app-shell/pkg/auth"
	"github.com/klwxsrx/go-app-shell/pkg/cmd"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
)

func loginCmd(sh *shell) *cobra.Command {
	var (
		username      string
		passwordStdin bool
		remember      bool
	)

	command := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session",
		RunE: func(command *cobra.Command, _ []string) error {
			password, err := readPassword(command.InOrStdin(), passwordStdin)
			if err != nil {
				return err
			}

			session, err := sh.container.Session.Load()
			if err != nil {
				return err
			}

			resp, err := session.Login(command.Context(), auth.Credentials{
				Username: username,
				Password: password,
				Remember: remember,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(command.OutOrStdout(), "Logged in as %s\n", displayName(resp.User))
			return nil
		},
	}
	command.Flags().StringVarP(&username, "username", "u", "", "account name")
	command.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	command.Flags().BoolVar(&remember, "remember", false, "ask the backend for a long-lived session")
	_ = command.MarkFlagRequired("username")

	return command
}

func logoutCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the persisted session",
		RunE: func(command *cobra.Command, _ []string) error {
			session, err := sh.container.Session.Load()
			if err != nil {
				return err
			}

			session.Logout(command.Context())
			fmt.Fprintln(command.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func statusCmd(sh *shell) *cobra.Command {
	var check bool

	command := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(command *cobra.Command, _ []string) error {
			session, err := sh.container.Session.Load()
			if err != nil {
				return err
			}
			if check && !session.CheckAuth(command.Context()) {
				return errors.New("not authenticated")
			}

			printStatus(command.OutOrStdout(), session.State())
			return nil
		},
	}
	command.Flags().BoolVar(&check, "check", false, "refresh an expired token and fail without a usable session")

	return command
}

func refreshCmd(sh *shell) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(command *cobra.Command, _ []string) error {
			session, err := sh.container.Session.Load()
			if err != nil {
				return err
			}

			token, err := session.RefreshToken(command.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(command.OutOrStdout(), "Token refreshed, %s\n", expiryDescription(token))
			return nil
		},
	}
}

func requestCmd(sh *shell) *cobra.Command {
	var (
		data    string
		headers []string
		silent  bool
		retries int
	)

	command := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request to the backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			opts := []pkghttp.RequestOption{pkghttp.WithSilent(silent)}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				opts = append(opts, pkghttp.WithBody(json.RawMessage(data)))
			}
			for _, header := range headers {
				key, value, ok := strings.Cut(header, ":")
				if !ok {
					return fmt.Errorf("header %q must be in Key: Value form", header)
				}
				opts = append(opts, pkghttp.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
			}
			if command.Flags().Changed("retries") {
				strategy := sh.container.Config.API.Retry
				strategy.Retries = retries
				opts = append(opts, pkghttp.WithRetry(strategy))
			}

			client, err := sh.container.Client.Load()
			if err != nil {
				return err
			}

			resp, err := client.Send(command.Context(), pkghttp.NewRequest(strings.ToUpper(args[0]), args[1], opts...))
			if err != nil {
				return err
			}

			return printBody(command.OutOrStdout(), resp.Body)
		},
	}
	command.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	command.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header, e.g. -H 'X-Trace: 1'")
	command.Flags().BoolVar(&silent, "silent", false, "log failures at debug level only")
	command.Flags().IntVar(&retries, "retries", 0, "override the configured retry count")

	return command
}

func serveCmd(sh *shell) *cobra.Command {
	var address string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over local HTTP routes",
		RunE: func(command *cobra.Command, _ []string) error {
			session, err := sh.container.Session.Load()
			if err != nil {
				return err
			}
			if address == "" {
				address = sh.container.Config.ServerAddress
			}

			logger := sh.container.Logger.MustLoad()
			server := appshell.NewServer(address, appshell.ServerDependencies{
				Session:  session,
				Registry: sh.container.Registry.MustLoad(),
				Observer: sh.container.Observer.MustLoad(),
				Metrics:  sh.container.Metrics.MustLoad(),
				Logger:   logger,
			})

			logger.WithField("address", address).Info(command.Context(), "serving session routes")
			return cmd.Run(command.Context(), logger,
				server.Listener,
				cmd.TermSignalAwaiter,
			)
		},
	}
	command.Flags().StringVar(&address, "address", "", "listen address, SERVER_ADDRESS by default")

	return command
}

func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if !fromStdin {
		password, ok := os.LookupEnv("APPSHELL_PASSWORD")
		if !ok {
			return "", errors.New("pass the password with --password-stdin or APPSHELL_PASSWORD")
		}
		return password, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func displayName(user auth.UserInfo) string {
	switch {
	case user.Name != "":
		return user.Name
	case user.Email != "":
		return user.Email
	default:
		return string(user.ID)
	}
}

func expiryDescription(token string) string {
	expiresAt, err := auth.ExpiresAt(token)
	if err != nil {
		return "expiry unknown"
	}

	return "expires at " + expiresAt.Local().Format(time.RFC1123)
}

func printStatus(w io.Writer, state auth.State) {
	if state.Token == "" {
		fmt.Fprintln(w, "Not logged in")
		return
	}

	if state.User != nil {
		fmt.Fprintf(w, "User:        %s (%s)\n", displayName(*state.User), state.User.ID)
		if len(state.User.Roles) > 0 {
			fmt.Fprintf(w, "Roles:       %s\n", strings.Join(state.User.Roles, ", "))
		}
	}
	if state.LastLoginTime != nil {
		fmt.Fprintf(w, "Logged in:   %s\n", state.LastLoginTime.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(w, "Token:       %s\n", expiryDescription(state.Token))
	fmt.Fprintf(w, "Refreshable: %t\n", state.RefreshToken != "")
}

func printBody(w io.Writer, body []byte) error {
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}

	_, err := fmt.Fprintln(w, string(body))
	return err
}
