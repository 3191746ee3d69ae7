package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/logging"
)

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a Gmail account",
		Long: `Run the Google consent flow and store the resulting token for the
configured identity. An existing token is replaced.

Requires google.client_id and google.client_secret (or the
INBOXASSIST_GOOGLE_CLIENT_ID and INBOXASSIST_GOOGLE_CLIENT_SECRET
environment variables).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{Interactive: true}, func(a *app) error {
				if a.cfg.Google.ClientID == "" || a.cfg.Google.ClientSecret == "" {
					return errors.New("google client id and secret are required to connect")
				}
				tok, err := a.resolver.Connect(cmd.Context())
				if err != nil {
					return err
				}

				info, err := google.UserInfoClient{HTTPClient: a.dialer.HTTPClient}.Fetch(cmd.Context(), tok)
				if err != nil {
					// The token is stored; the profile is only cosmetic.
					a.logger.Warn("failed to fetch account profile", logging.Err(err))
					fmt.Fprintln(cmd.OutOrStdout(), "Gmail account connected.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Gmail account %s connected.\n", info.Email)
				return nil
			})
		},
	}
	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a Gmail account is connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(a *app) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Identity:  %s\n", a.cfg.Session.Identity)
				fmt.Fprintf(out, "Store:     %s\n", a.cfg.Store.Driver)

				connected, err := a.resolver.Connected(ctx)
				if err != nil {
					return err
				}
				if !connected {
					fmt.Fprintln(out, "Gmail:     not connected")
					return nil
				}

				tok, err := a.gmailToken(ctx)
				if err != nil {
					return err
				}
				client, err := a.dialer.Dial(ctx, tok)
				if err != nil {
					return err
				}
				profile, err := client.Profile(ctx)
				if err != nil {
					fmt.Fprintf(out, "Gmail:     connected (profile unavailable: %v)\n", err)
					return nil
				}
				fmt.Fprintf(out, "Gmail:     connected as %s (%d messages)\n", profile.EmailAddress, profile.MessagesTotal)
				return nil
			})
		},
	}
	return cmd
}

func newDisconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the stored Gmail token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), appOptions{}, func(a *app) error {
				if err := a.resolver.Disconnect(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Gmail account disconnected.")
				return nil
			})
		},
	}
	return cmd
}
