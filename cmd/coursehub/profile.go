package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.principal(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.client.GetUser(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", u.Name, u.ID)
			if u.Image != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "image: %s\n", u.Image)
			}
			return nil
		},
	}

	var name, image string
	set := &cobra.Command{
		Use:   "set",
		Short: "Change your display name or image URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.principal(cmd.Context())
			if err != nil {
				return err
			}
			current, err := a.client.GetUser(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = current.Name
			}
			if !cmd.Flags().Changed("image") {
				image = current.Image
			}
			u, err := a.client.UpdateUser(cmd.Context(), p.ID, name, image)
			if err != nil {
				return err
			}
			// The server reissues the session cookie with the new name.
			if err := a.saveToken(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s\n", u.Name)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "display name")
	set.Flags().StringVar(&image, "image", "", "profile image URL")
	cmd.AddCommand(set)
	return cmd
}
