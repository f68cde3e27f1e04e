package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/coursehub/internal/model"
)

func newSignUpCmd(a *app) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.SignUp(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if err := a.saveToken(); err != nil {
				return err
			}
			printPrincipal(cmd, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveToken(); err != nil {
				return err
			}
			printPrincipal(cmd, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The local session goes away even if the server is unreachable.
			serverErr := a.client.SignOut(cmd.Context())
			a.client.SetToken("")
			if err := a.saveToken(); err != nil {
				return err
			}
			if serverErr != nil {
				a.logger.Warn("server sign-out failed", slog.String("error", serverErr.Error()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.principal(cmd.Context())
			if err != nil {
				return err
			}
			printPrincipal(cmd, p)
			return nil
		},
	}
}

func printPrincipal(cmd *cobra.Command, p model.Principal) {
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s> (id %d)\n", p.Name, p.Email, p.ID)
}
