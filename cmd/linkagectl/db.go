package main

import (
	"fmt"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "System settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert missing default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd.Context(), func(b *backend) error {
				seeded, err := settings.NewService(b.settings, nil).Seed(cmd.Context())
				if err != nil {
					return err
				}
				if len(seeded) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "settings already seeded")
					return nil
				}
				for _, k := range seeded {
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", k)
				}
				return nil
			})
		},
	})
	return cmd
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "admin", Short: "Administrator accounts"}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the first administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			return withBackend(cmd.Context(), func(b *backend) error {
				u, err := users.NewService(b.users).CreateFirstAdmin(cmd.Context(), email, password, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	create.Flags().String("email", "", "admin e-mail")
	create.Flags().String("password", "", "admin password")
	create.Flags().String("name", "", "display name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	cmd.AddCommand(create)
	return cmd
}
