package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webbase/adminapi/internal/auth"
	"github.com/webbase/adminapi/internal/organization"
	"github.com/webbase/adminapi/internal/role"
	"github.com/webbase/adminapi/internal/seed"
	"github.com/webbase/adminapi/internal/user"
)

func newSeedCmd() *cobra.Command {
	var (
		adminName     string
		adminPassword string
		migrate       bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default roles, root organization and admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if _, err := db.MigrateUp(cmd.Context()); err != nil {
					return err
				}
			}

			users := user.NewRepository(db)
			hasher, err := auth.NewService(users, nil, cfg.BcryptCost)
			if err != nil {
				return err
			}

			res, err := seed.Run(cmd.Context(), seed.Deps{
				Users:         users,
				Roles:         role.NewRepository(db),
				Organizations: organization.NewRepository(db),
				Hasher:        hasher,
			}, seed.Options{
				AdminRole:     cfg.AdminRole,
				AdminName:     adminName,
				AdminPassword: adminPassword,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.CreatedAdmin {
				_, _ = fmt.Fprintf(out, "admin user %q already exists\n", res.AdminName)
				return nil
			}
			_, _ = fmt.Fprintf(out, "admin user %q created\n", res.AdminName)
			if res.GeneratedPassword != "" {
				_, _ = fmt.Fprintf(out, "generated password: %s\n", res.GeneratedPassword)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&adminName, "admin-name", seed.DefaultAdminName, "name of the admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the admin account; generated when empty")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations first")

	return cmd
}
