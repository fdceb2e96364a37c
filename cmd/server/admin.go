package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBDriver)
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account directly in the database.

The password is read from ADMIN_PASSWORD so it does not end up in shell
history.

Examples:
  ADMIN_PASSWORD=... studio create-admin --email owner@studio.example --name Owner`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("ADMIN_PASSWORD")
			if len(password) < 8 {
				return errors.New("ADMIN_PASSWORD must be at least 8 characters")
			}
			if !strings.Contains(email, "@") {
				return fmt.Errorf("invalid --email %q", email)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
				return err
			}

			hash, err := utils.HashPassword(password, cfg.BcryptCost)
			if err != nil {
				return err
			}
			a := model.Admin{Name: name, Email: email, PasswordHash: hash}
			if err := repository.NewAdminRepo(db).Create(ctx, &a); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %d created (%s)\n", a.ID, a.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
